package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"capserv/src/app"

	"github.com/gin-gonic/gin"
)

// PostVoteBody accepts both form and JSON submissions. VoteValue may arrive
// as a number or a numeric string.
type PostVoteBody struct {
	CaptionID string      `form:"captionId" json:"captionId"`
	VoteValue json.Number `form:"voteValue" json:"voteValue"`
}

var voteStatus = map[app.VoteOutcome]int{
	app.VoteCreated: http.StatusCreated,
	app.VoteUpdated: http.StatusOK,
	app.VoteInvalid: http.StatusBadRequest,
	app.VoteError:   http.StatusInternalServerError,
}

func (a *AppHandler) PostVote(c *gin.Context) {
	cred, ok := a.credential(c)
	if !ok {
		return
	}

	var body PostVoteBody
	outcome := app.VoteInvalid
	if err := c.ShouldBind(&body); err != nil {
		a.logger.Info("vote body rejected",
			"event", "vote_body_invalid",
			"voter_id", cred.VoterID,
			"error", err.Error(),
		)
	} else if value, err := strconv.Atoi(strings.TrimSpace(body.VoteValue.String())); err == nil {
		outcome = a.deps.Reconciler.Submit(c.Request.Context(), body.CaptionID, cred.VoterID, value)
	}

	c.JSON(voteStatus[outcome], gin.H{"vote": outcome})
}

// GetVotes lists the caller's most recently changed votes.
func (a *AppHandler) GetVotes(c *gin.Context) {
	cred, ok := a.credential(c)
	if !ok {
		return
	}
	votes, err := a.deps.Store.ListRecentVotes(c.Request.Context(), cred.VoterID, a.config.DB.RecentVoteLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.ErrorEnvelope{Error: "Unable to load votes."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}
