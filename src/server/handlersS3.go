package server

import (
	"net/http"

	"capserv/src/app"

	"github.com/gin-gonic/gin"
)

func (a *AppHandler) GetImageList(c *gin.Context) {
	if a.deps.Uploads == nil {
		c.JSON(http.StatusNotFound, app.ErrorEnvelope{Error: "Image listing is not enabled."})
		return
	}
	cred, ok := a.credential(c)
	if !ok {
		return
	}
	images, err := a.deps.Uploads.ListUploads(c.Request.Context(), cred.VoterID)
	if err != nil {
		a.logger.Error("can not list uploads",
			"event", "uploads_list_failed",
			"voter_id", cred.VoterID,
			"error", err.Error(),
		)
		c.JSON(http.StatusInternalServerError, app.ErrorEnvelope{Error: "Unable to list images."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": images})
}
