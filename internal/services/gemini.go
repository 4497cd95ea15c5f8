package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiService is the text-generation surface the Gemini CV scorer needs.
type GeminiService interface {
	GenerateJSON(ctx context.Context, prompt string, temperature float32) (string, error)
}

type geminiService struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey, model string, logger *zap.Logger) (GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &geminiService{
		client:    client,
		modelName: model,
		logger:    logger,
	}, nil
}

// GenerateJSON requests a JSON response. Transport errors are returned unwrapped by kind so the
// inference gateway can classify them.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		g.logger.Warn("gemini request failed", zap.String("model", g.modelName), zap.Error(err))
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		var parts []string
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part != nil && part.Text != "" {
					parts = append(parts, part.Text)
				}
			}
		}
		if len(parts) == 0 {
			return "", fmt.Errorf("no text content in response")
		}
		text = strings.Join(parts, "\n")
	}

	return text, nil
}

// geminiCVScorer scores a CV by extracting its text and prompting Gemini for the scorer object.
type geminiCVScorer struct {
	gemini  GeminiService
	parser  PDFParser
	prompts *PromptBuilder
}

func NewGeminiCVScorer(gemini GeminiService, parser PDFParser, prompts *PromptBuilder) CVScorer {
	return &geminiCVScorer{gemini: gemini, parser: parser, prompts: prompts}
}

func (s *geminiCVScorer) Score(ctx context.Context, filePath, jobDescription string) ([]byte, error) {
	cvText, err := s.parser.ExtractText(filePath)
	if err != nil {
		return nil, err
	}

	text, err := s.gemini.GenerateJSON(ctx, s.prompts.BuildCVMatchPrompt(cvText, jobDescription), 0.2)
	if err != nil {
		return nil, err
	}

	obj := parseJSONObject(text)
	if len(obj) == 0 {
		// surfaces as a parse-failure marker so the gateway retries
		return []byte(`{"error":"Model output could not be parsed as JSON"}`), nil
	}
	return json.Marshal(obj)
}
