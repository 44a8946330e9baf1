package app

import (
	"bytes"
	"context"
	"encoding/json"
)

// PresignStage requests a write target. Both URLs must be present.
func PresignStage(presigner Presigner) Stage {
	return Stage{Name: StepPresign, Run: func(ctx context.Context, state *PipelineState) *StageFailure {
		resp, err := presigner.GeneratePresignedURL(ctx, state.Credential, state.Upload.ContentType)
		if err != nil {
			return transportFailure(err)
		}
		body := ParseJSONBody(resp.Body)
		var target PresignedTarget
		if body != nil {
			if err := json.Unmarshal(body, &target); err != nil {
				target = PresignedTarget{}
			}
		}
		if !isSuccess(resp.StatusCode) || target.PresignedURL == "" || target.CDNURL == "" {
			return &StageFailure{StatusCode: SafeStatus(resp.StatusCode), Details: jsonDetails(body)}
		}
		state.Target = target
		return nil
	}}
}

// UploadStage writes the payload to the presigned URL. A textual diagnostic
// from the target is attached as details when one could be read.
func UploadStage(writer ObjectWriter) Stage {
	return Stage{Name: StepUpload, Run: func(ctx context.Context, state *PipelineState) *StageFailure {
		resp, err := writer.PutObject(ctx, state.Target.PresignedURL, state.Upload.ContentType, state.Upload.Payload)
		if err != nil {
			return transportFailure(err)
		}
		if !isSuccess(resp.StatusCode) {
			var details any
			if len(resp.Body) > 0 {
				details = string(resp.Body)
			}
			return &StageFailure{StatusCode: SafeStatus(resp.StatusCode), Details: details}
		}
		return nil
	}}
}

// RegisterStage announces the uploaded image, never for common use.
func RegisterStage(api CaptionAPI) Stage {
	return Stage{Name: StepRegister, Run: func(ctx context.Context, state *PipelineState) *StageFailure {
		resp, err := api.UploadImageFromURL(ctx, state.Credential, state.Target.CDNURL, false)
		if err != nil {
			return transportFailure(err)
		}
		body := ParseJSONBody(resp.Body)
		var image RegisteredImage
		if body != nil {
			if err := json.Unmarshal(body, &image); err != nil {
				image = RegisteredImage{}
			}
		}
		if !isSuccess(resp.StatusCode) || image.ImageID == "" {
			return &StageFailure{StatusCode: SafeStatus(resp.StatusCode), Details: jsonDetails(body)}
		}
		state.Image = image
		return nil
	}}
}

// CaptionStage requests captions. The payload must be a JSON array; its
// records are kept verbatim.
func CaptionStage(api CaptionAPI) Stage {
	return Stage{Name: StepCaptions, Run: func(ctx context.Context, state *PipelineState) *StageFailure {
		resp, err := api.GenerateCaptions(ctx, state.Credential, state.Image.ImageID)
		if err != nil {
			return transportFailure(err)
		}
		body := ParseJSONBody(resp.Body)
		var captions []json.RawMessage
		isArray := body != nil && body[0] == '[' && json.Unmarshal(body, &captions) == nil
		if !isSuccess(resp.StatusCode) || !isArray {
			return &StageFailure{StatusCode: SafeStatus(resp.StatusCode), Details: jsonDetails(body)}
		}
		if captions == nil {
			captions = []json.RawMessage{}
		}
		state.Captions = captions
		return nil
	}}
}

// ParseJSONBody returns the trimmed body when it is well-formed JSON and nil
// otherwise. An absent or malformed body is a normal outcome.
func ParseJSONBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil
	}
	out := make(json.RawMessage, len(trimmed))
	copy(out, trimmed)
	return out
}

func jsonDetails(body json.RawMessage) any {
	if body == nil {
		return nil
	}
	return body
}

func transportFailure(err error) *StageFailure {
	return &StageFailure{StatusCode: FallbackStatus, Err: err}
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}
