package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/entity"
)

// Config for the OpenAI-backed provider.
type Config struct {
	APIKey      string
	BaseURL     string  // default https://api.openai.com/v1
	TextModel   string  // lighter text-only model
	VisionModel string  // heavier vision-capable model
	Temperature float32 // 0..2
	Timeout     time.Duration
	RatePerSec  float64 // outbound call budget; 0 = unlimited
}

// OpenAIProvider implements Provider with the text path on the lighter model
// and the vision path on the heavier one.
type OpenAIProvider struct {
	cfg     Config
	client  *openai.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewOpenAIProvider(cfg Config, logger *slog.Logger) *OpenAIProvider {
	if cfg.TextModel == "" {
		cfg.TextModel = "gpt-4o-mini"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &OpenAIProvider{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(cc),
		limiter: limiter,
		logger:  logger,
	}
}

func (p *OpenAIProvider) ExtractText(ctx context.Context, req Request) ([]entity.ExtractedField, error) {
	schema := BuildFieldJSONSchema(req.Specs)
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
		{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req, schema)},
	}
	return p.complete(ctx, p.cfg.TextModel, messages, schema)
}

func (p *OpenAIProvider) ExtractVision(ctx context.Context, req Request) ([]entity.ExtractedField, error) {
	schema := BuildFieldJSONSchema(req.Specs)
	dataURL, err := imageDataURL(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("read page image: %w", err)
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: buildUserPrompt(req, schema)},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		},
	}
	return p.complete(ctx, p.cfg.VisionModel, messages, schema)
}

func (p *OpenAIProvider) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage, schema map[string]any) ([]entity.ExtractedField, error) {
	rid := uuid.New().String()
	start := time.Now()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	p.logger.Info("llm.extract.start", "req_id", rid, "model", model)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: p.cfg.Temperature,
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if len(resp.Choices) == 0 {
		p.logger.Error("llm.extract.no_choices", "req_id", rid)
		return nil, fmt.Errorf("no choices in model response")
	}

	content := []byte(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err := CheckResponseShape(schema, content); err != nil {
		p.logger.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var envelope struct {
		Fields []struct {
			Name       string  `json:"name"`
			Value      string  `json:"value"`
			Confidence float64 `json:"confidence"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}

	out := make([]entity.ExtractedField, 0, len(envelope.Fields))
	for _, f := range envelope.Fields {
		conf := f.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out = append(out, entity.ExtractedField{
			FieldName:  f.Name,
			Value:      strings.TrimSpace(f.Value),
			Confidence: conf,
			Source:     constants.SourceProbabilistic,
		})
	}

	p.logger.Info("llm.extract.ok",
		"req_id", rid, "model", model, "fields", len(out),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func imageDataURL(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := "image/png"
	switch constants.NormalizeExt(filepath.Ext(path)) {
	case "jpg", "jpeg":
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
