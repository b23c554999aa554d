package llmfallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	httpclient "loan-assistant/internal/common/http"
	"loan-assistant/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "llm-fallback"

	// ErrorMarker prefixes every reply produced from a failed call.
	ErrorMarker = "[LLM ERROR]"
)

var (
	ErrLLMRequestFailed = errors.New("LLM_REQUEST_FAILED")
	ErrLLMTimeout       = errors.New("LLM_TIMEOUT")
	ErrModelNotAllowed  = errors.New("MODEL_NOT_ALLOWED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	client *httpclient.Client
	logger Logger
}

func NewHandler(config *Config, log Logger) *Handler {
	return NewHandlerWithClient(config, httpclient.NewClient(config.Timeout), log)
}

// NewHandlerWithClient lets tests point the handler at an httptest server.
func NewHandlerWithClient(config *Config, client *httpclient.Client, log Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	// A failed call still completes the job; the tagged reply is the result.
	model := h.resolveModel(input.Model)
	reply := h.Reply(context.Background(), input.Utterance, model)
	h.completeJob(client, job, &Output{
		Reply:  reply,
		Model:  model,
		Failed: IsErrorReply(reply),
	})
}

// Reply forwards utterance to the model and always returns text. Failures come
// back as a string starting with ErrorMarker.
func (h *Handler) Reply(ctx context.Context, utterance, model string) string {
	out, err := h.execute(ctx, &Input{Utterance: utterance, Model: model})
	if err != nil {
		return FormatError(err)
	}
	return out.Reply
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	model := h.resolveModel(input.Model)
	if !h.config.IsAllowed(model) {
		metrics.LLMRequests.WithLabelValues(model, "rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrModelNotAllowed, model)
	}
	if strings.TrimSpace(h.config.APIKey) == "" {
		metrics.LLMRequests.WithLabelValues(model, "error").Inc()
		return nil, fmt.Errorf("%w: no API key configured", ErrLLMRequestFailed)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + h.config.APIKey,
	}
	if h.config.Referer != "" {
		headers["HTTP-Referer"] = h.config.Referer
	}
	if h.config.Title != "" {
		headers["X-Title"] = h.config.Title
	}

	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: h.config.SystemPrompt},
			{Role: "user", Content: input.Utterance},
		},
	}

	var resp chatResponse
	url := strings.TrimRight(h.config.BaseURL, "/") + "/chat/completions"
	if err := h.client.PostJSON(ctx, url, headers, req, &resp); err != nil {
		metrics.LLMRequests.WithLabelValues(model, "error").Inc()
		h.logger.Warn("llm call failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrLLMTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrLLMRequestFailed, err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequests.WithLabelValues(model, "error").Inc()
		detail := "response has no choices"
		if resp.Error != nil && resp.Error.Message != "" {
			detail = resp.Error.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrLLMRequestFailed, detail)
	}

	metrics.LLMRequests.WithLabelValues(model, "ok").Inc()
	h.logger.Info("llm reply received", map[string]interface{}{
		"model":  model,
		"length": len(resp.Choices[0].Message.Content),
	})

	return &Output{
		Reply: resp.Choices[0].Message.Content,
		Model: model,
	}, nil
}

func (h *Handler) resolveModel(model string) string {
	if model == "" {
		return h.config.DefaultModel
	}
	return model
}

// FormatError renders err as the user-visible tagged reply.
func FormatError(err error) string {
	return fmt.Sprintf("%s %v", ErrorMarker, err)
}

// IsErrorReply reports whether reply came from a failed call.
func IsErrorReply(reply string) bool {
	return strings.HasPrefix(reply, ErrorMarker)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey": job.Key,
		"error":  err.Error(),
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(err.Error()).
		Send(context.Background())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
