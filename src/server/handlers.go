package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"capserv/src/app"
	cfg "capserv/src/configuration"
	"capserv/src/repository"

	"github.com/gin-gonic/gin"
)

type (
	// UploadLister lists a voter's previously uploaded images.
	UploadLister interface {
		ListUploads(ctx context.Context, voterID string) ([]app.UploadedImage, error)
	}

	// Dependencies are the collaborators the handlers need. Uploads may be
	// nil when no object store is configured.
	Dependencies struct {
		Resolver     CredentialResolver
		Validator    *app.ContentValidator
		Orchestrator *app.Orchestrator
		Reconciler   *app.VoteReconciler
		Store        repository.Store
		Uploads      UploadLister
	}

	AppHandler struct {
		deps     Dependencies
		composer *app.OutcomeComposer
		config   *cfg.Properties
		logger   *slog.Logger
	}
)

func NewHandler(config *cfg.Properties, deps Dependencies, logger *slog.Logger) *AppHandler {
	logger = app.ResolveLogger(logger)
	return &AppHandler{
		deps:     deps,
		composer: app.NewOutcomeComposer(logger),
		config:   config,
		logger:   logger,
	}
}

// PostCaptions runs the caption pipeline for a multipart image upload.
func (a *AppHandler) PostCaptions(c *gin.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("caption request panicked",
				"event", "pipeline_panic",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			c.JSON(http.StatusInternalServerError, app.ErrorEnvelope{Error: app.MessageUnexpected})
		}
	}()

	upload, err := readUpload(c, a.config.Server.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, app.ErrorEnvelope{Error: "Uploaded file is too large."})
			return
		}
		a.respond(c, app.PipelineResult{}, err)
		return
	}
	defer upload.Close()

	if err := a.deps.Validator.Validate(upload.reader(), upload.contentType, upload.size); err != nil {
		a.respond(c, app.PipelineResult{}, err)
		return
	}

	cred, err := a.deps.Resolver.Resolve(c.Request)
	if err != nil {
		a.respond(c, app.PipelineResult{}, err)
		return
	}

	payload, err := upload.readAll()
	if err != nil {
		a.respond(c, app.PipelineResult{}, err)
		return
	}

	result, err := a.deps.Orchestrator.Run(c.Request.Context(), cred, app.UploadRequest{
		Payload:     payload,
		ContentType: upload.contentType,
		Size:        upload.size,
	})
	a.respond(c, result, err)
}

func (a *AppHandler) respond(c *gin.Context, result app.PipelineResult, err error) {
	out := a.composer.Compose(result, err)
	c.JSON(out.Status, out.Body)
}

// credential resolves the caller or writes the 401 envelope.
func (a *AppHandler) credential(c *gin.Context) (app.Credential, bool) {
	cred, err := a.deps.Resolver.Resolve(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.ErrorEnvelope{Error: app.MessageUnauthorized})
		return app.Credential{}, false
	}
	return cred, true
}

func (a *AppHandler) GetCaptions(c *gin.Context) {
	captions, err := a.deps.Store.ListPublicCaptions(c.Request.Context(), a.config.DB.CaptionLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.ErrorEnvelope{Error: "Unable to load captions."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"captions": captions})
}
