package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"nasi-kandar-bot/apperr"
)

const (
	defaultHFBaseURL = "https://router.huggingface.co/hf-inference/models"
	defaultHFModel   = "dandelin/vilt-b32-finetuned-vqa"
)

var errHFTokenRequired = errors.New("hugging face token is required")

// HuggingFaceOracle asks a hosted visual question answering model.
type HuggingFaceOracle struct {
	Token    string
	Endpoint string
	client   *http.Client
}

func NewHuggingFaceOracle(token, baseURL, model string, client *http.Client) (*HuggingFaceOracle, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errHFTokenRequired
	}
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	if model == "" {
		model = defaultHFModel
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HuggingFaceOracle{
		Token:    token,
		Endpoint: strings.TrimRight(baseURL, "/") + "/" + model,
		client:   client,
	}, nil
}

func (o *HuggingFaceOracle) Ask(ctx context.Context, imagePath, question string) (Answer, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return Answer{}, fmt.Errorf("read image: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"inputs": map[string]string{
			"image":    base64.StdEncoding.EncodeToString(img),
			"question": question,
		},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Answer{}, apperr.Wrap(apperr.CodeDependency, err, "HF request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Answer{}, apperr.Wrap(apperr.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), "HF API error")
	}

	var answers []struct {
		Answer string  `json:"answer"`
		Score  float64 `json:"score"`
	}
	if err := json.Unmarshal(body, &answers); err != nil {
		return Answer{}, fmt.Errorf("failed to parse HF response: %w", err)
	}
	if len(answers) == 0 {
		return Answer{}, nil
	}
	return Answer{Text: answers[0].Answer, Score: answers[0].Score}, nil
}
