package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

const (
	MessageUnauthorized = "Missing valid JWT access token. Please sign in again."
	MessageUnexpected   = "Unexpected server error while processing image caption pipeline."
)

// ErrUnauthenticated means no valid session credential was presented.
var ErrUnauthenticated = errors.New("unauthenticated")

type (
	SuccessEnvelope struct {
		ImageID  string            `json:"imageId"`
		CDNURL   string            `json:"cdnUrl"`
		Captions []json.RawMessage `json:"captions"`
	}

	StageFailureEnvelope struct {
		Step    string `json:"step"`
		Error   string `json:"error"`
		Details any    `json:"details"`
	}

	ErrorEnvelope struct {
		Error                 string   `json:"error"`
		SupportedContentTypes []string `json:"supportedContentTypes,omitempty"`
	}

	// Outcome is an HTTP status paired with the body to send.
	Outcome struct {
		Status int
		Body   any
	}

	OutcomeComposer struct {
		logger *slog.Logger
	}
)

var stageMessages = map[string]string{
	StepPresign:  "Failed to generate presigned upload URL.",
	StepUpload:   "Failed to upload image bytes to storage.",
	StepRegister: "Failed to register image URL in pipeline.",
	StepCaptions: "Failed to generate captions.",
}

// StageMessage is the caller-facing message for a failed step.
func StageMessage(step string) string {
	if msg, ok := stageMessages[step]; ok {
		return msg
	}
	return fmt.Sprintf("Pipeline step %s failed.", step)
}

func NewOutcomeComposer(logger *slog.Logger) *OutcomeComposer {
	return &OutcomeComposer{logger: ResolveLogger(logger)}
}

// Compose maps a pipeline result, or whatever error stopped the request, to
// an outcome. Unclassified errors become a generic 500 and are only logged.
func (c *OutcomeComposer) Compose(result PipelineResult, err error) (out Outcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("outcome composition panicked",
				"event", "pipeline_compose_panic",
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			out = Outcome{Status: http.StatusInternalServerError, Body: ErrorEnvelope{Error: MessageUnexpected}}
		}
	}()

	if err == nil {
		return Outcome{Status: http.StatusOK, Body: SuccessEnvelope{
			ImageID:  result.ImageID,
			CDNURL:   result.CDNURL,
			Captions: result.Captions,
		}}
	}

	var failure *StageFailure
	var rejection *RejectionError
	switch {
	case errors.As(err, &failure):
		return Outcome{Status: SafeStatus(failure.StatusCode), Body: StageFailureEnvelope{
			Step:    failure.Step,
			Error:   StageMessage(failure.Step),
			Details: failure.Details,
		}}
	case errors.As(err, &rejection):
		return Outcome{Status: http.StatusBadRequest, Body: ErrorEnvelope{
			Error:                 rejection.Error(),
			SupportedContentTypes: rejection.Supported,
		}}
	case errors.Is(err, ErrUnauthenticated):
		return Outcome{Status: http.StatusUnauthorized, Body: ErrorEnvelope{Error: MessageUnauthorized}}
	default:
		c.logger.Error("unexpected pipeline failure",
			"event", "pipeline_unexpected_failure",
			"error", err.Error(),
		)
		return Outcome{Status: http.StatusInternalServerError, Body: ErrorEnvelope{Error: MessageUnexpected}}
	}
}
