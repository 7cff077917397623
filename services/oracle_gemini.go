package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiPromptTemplate = `Look at the attached image and answer the question.
Question: %s
Respond with JSON only: {"answer": "<short answer>", "confidence": <number between 0 and 1>}`

// GeminiOracle answers image questions with a Gemini multimodal model.
type GeminiOracle struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiOracle(ctx context.Context, apiKey, modelName string) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	return &GeminiOracle{client: client, model: model}, nil
}

func (g *GeminiOracle) Ask(ctx context.Context, imagePath, question string) (Answer, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return Answer{}, fmt.Errorf("read image: %w", err)
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData(imageFormat(img), img),
		genai.Text(fmt.Sprintf(geminiPromptTemplate, question)),
	)
	if err != nil {
		return Answer{}, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Answer{}, fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return parseGeminiAnswer(sb.String())
}

func (g *GeminiOracle) Close() error {
	return g.client.Close()
}

// parseGeminiAnswer accepts the JSON reply, optionally wrapped in a markdown fence.
func parseGeminiAnswer(text string) (Answer, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var out struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return Answer{}, fmt.Errorf("parse gemini answer %q: %w", text, err)
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	return Answer{Text: out.Answer, Score: out.Confidence}, nil
}

func imageFormat(img []byte) string {
	ct := http.DetectContentType(img)
	if f, ok := strings.CutPrefix(ct, "image/"); ok {
		return f
	}
	return "jpeg"
}
