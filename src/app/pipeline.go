package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Pipeline step names, reported as `step` in failure envelopes.
const (
	StepPresign  = "generate-presigned-url"
	StepUpload   = "upload-bytes-to-presigned-url"
	StepRegister = "register-image-url"
	StepCaptions = "generate-captions"
)

// FallbackStatus replaces upstream codes outside the error range.
const FallbackStatus = http.StatusBadGateway

type (
	// RemoteResponse is an upstream answer before interpretation. Body is nil
	// when nothing could be read.
	RemoteResponse struct {
		StatusCode int
		Body       []byte
	}

	// PresignedTarget is the one-time write location and its public read URL.
	PresignedTarget struct {
		PresignedURL string `json:"presignedUrl"`
		CDNURL       string `json:"cdnUrl"`
	}

	// RegisteredImage is the pipeline's handle for an uploaded image.
	RegisteredImage struct {
		ImageID string `json:"imageId"`
	}

	// PipelineResult is the terminal success of a pipeline run.
	PipelineResult struct {
		ImageID  string
		CDNURL   string
		Captions []json.RawMessage
	}

	// StageFailure is the terminal failure of a pipeline run at Step.
	// Details is nil, a json.RawMessage or a string.
	StageFailure struct {
		Step       string
		StatusCode int
		Details    any
		Err        error
	}

	// PipelineState is threaded through the stages; each stage reads what
	// earlier stages produced and records its own output.
	PipelineState struct {
		Credential Credential
		Upload     UploadRequest
		Target     PresignedTarget
		Image      RegisteredImage
		Captions   []json.RawMessage
	}

	StageFunc func(ctx context.Context, state *PipelineState) *StageFailure

	Stage struct {
		Name string
		Run  StageFunc
	}
)

type (
	// Presigner issues a write target for a content type (stage 1).
	Presigner interface {
		GeneratePresignedURL(ctx context.Context, cred Credential, contentType string) (RemoteResponse, error)
	}

	// ObjectWriter writes raw bytes to a presigned URL (stage 2).
	ObjectWriter interface {
		PutObject(ctx context.Context, uploadURL, contentType string, payload []byte) (RemoteResponse, error)
	}

	// CaptionAPI registers images and generates captions (stages 3 and 4).
	CaptionAPI interface {
		UploadImageFromURL(ctx context.Context, cred Credential, imageURL string, isCommonUse bool) (RemoteResponse, error)
		GenerateCaptions(ctx context.Context, cred Credential, imageID string) (RemoteResponse, error)
	}
)

func (f *StageFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s failed with status %d: %v", f.Step, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("%s failed with status %d", f.Step, f.StatusCode)
}

func (f *StageFailure) Unwrap() error { return f.Err }

// Orchestrator runs its stages in order and stops at the first failure.
type Orchestrator struct {
	stages []Stage
	logger *slog.Logger
}

// NewOrchestrator wires the four caption pipeline stages.
func NewOrchestrator(presigner Presigner, writer ObjectWriter, api CaptionAPI, logger *slog.Logger) *Orchestrator {
	return NewOrchestratorWithStages([]Stage{
		PresignStage(presigner),
		UploadStage(writer),
		RegisterStage(api),
		CaptionStage(api),
	}, logger)
}

func NewOrchestratorWithStages(stages []Stage, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{stages: stages, logger: ResolveLogger(logger)}
}

// Stages lists stage names in execution order.
func (o *Orchestrator) Stages() []string {
	names := make([]string, 0, len(o.stages))
	for _, stage := range o.stages {
		names = append(names, stage.Name)
	}
	return names
}

// Run executes the pipeline for an accepted upload. A non-nil error is always
// a *StageFailure.
func (o *Orchestrator) Run(ctx context.Context, cred Credential, upload UploadRequest) (PipelineResult, error) {
	upload.ContentType = strings.ToLower(strings.TrimSpace(upload.ContentType))
	state := &PipelineState{Credential: cred, Upload: upload}

	for _, stage := range o.stages {
		o.logger.Debug("pipeline stage started",
			"event", "pipeline_stage_started",
			"step", stage.Name,
			"voter_id", cred.VoterID,
		)
		if failure := stage.Run(ctx, state); failure != nil {
			failure.Step = stage.Name
			failure.StatusCode = SafeStatus(failure.StatusCode)
			attrs := []any{
				"event", "pipeline_stage_failed",
				"step", stage.Name,
				"status", failure.StatusCode,
				"voter_id", cred.VoterID,
			}
			if failure.Err != nil {
				attrs = append(attrs, "error", failure.Err.Error())
			}
			o.logger.Warn("pipeline stage failed", attrs...)
			return PipelineResult{}, failure
		}
	}

	o.logger.Info("pipeline completed",
		"event", "pipeline_completed",
		"voter_id", cred.VoterID,
		"image_id", state.Image.ImageID,
		"captions", len(state.Captions),
	)
	return PipelineResult{
		ImageID:  state.Image.ImageID,
		CDNURL:   state.Target.CDNURL,
		Captions: state.Captions,
	}, nil
}

// SafeStatus keeps client and server error codes and maps anything else to
// FallbackStatus.
func SafeStatus(code int) int {
	if code >= 400 && code <= 599 {
		return code
	}
	return FallbackStatus
}

// ResolveLogger guarantees a non-nil logger.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
