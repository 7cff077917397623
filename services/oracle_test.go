package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"nasi-kandar-bot/apperr"
)

func TestHuggingFaceOracleAsk(t *testing.T) {
	img := []byte("\x89PNG fake image")
	path := filepath.Join(t.TempDir(), "receipt.png")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		t.Fatal(err)
	}

	var capturedURL, capturedAuth string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		var payload struct {
			Inputs struct {
				Image    string `json:"image"`
				Question string `json:"question"`
			} `json:"inputs"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if payload.Inputs.Question != ReceiptQuestion {
			t.Errorf("question = %q", payload.Inputs.Question)
		}
		if payload.Inputs.Image != base64.StdEncoding.EncodeToString(img) {
			t.Error("image not base64 encoded")
		}
		return jsonResponse(http.StatusOK, `[{"answer":"yes","score":0.93},{"answer":"no","score":0.05}]`), nil
	})

	o, err := NewHuggingFaceOracle("hf_test", "http://hf.test/models", "acme/vqa", &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}
	a, err := o.Ask(context.Background(), path, ReceiptQuestion)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if a.Text != "yes" || a.Score != 0.93 {
		t.Errorf("answer = %+v", a)
	}
	if capturedURL != "http://hf.test/models/acme/vqa" {
		t.Errorf("URL = %q", capturedURL)
	}
	if capturedAuth != "Bearer hf_test" {
		t.Errorf("Authorization = %q", capturedAuth)
	}
}

func TestHuggingFaceOracleErrorStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.jpg")
	if err := os.WriteFile(path, []byte("img"), 0o600); err != nil {
		t.Fatal(err)
	}
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `{"error":"model loading"}`), nil
	})
	o, _ := NewHuggingFaceOracle("hf_test", "http://hf.test", "m", &http.Client{Transport: rt})

	if _, err := o.Ask(context.Background(), path, TotalQuestion); !apperr.HasCode(err, apperr.CodeDependency) {
		t.Errorf("err = %v, want dependency error", err)
	}
}

func TestNewHuggingFaceOracleRequiresToken(t *testing.T) {
	if _, err := NewHuggingFaceOracle("", "", "", nil); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestParseGeminiAnswer(t *testing.T) {
	tests := []struct {
		in      string
		want    Answer
		wantErr bool
	}{
		{`{"answer":"yes","confidence":0.88}`, Answer{"yes", 0.88}, false},
		{"```json\n{\"answer\":\"RM27.00\",\"confidence\":0.7}\n```", Answer{"RM27.00", 0.7}, false},
		{`{"answer":"yes","confidence":3}`, Answer{"yes", 1}, false},
		{`yes it is`, Answer{}, true},
	}
	for _, tt := range tests {
		got, err := parseGeminiAnswer(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseGeminiAnswer(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseGeminiAnswer(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestImageFormat(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	if got := imageFormat(png); got != "png" {
		t.Errorf("imageFormat(png) = %q", got)
	}
	if got := imageFormat([]byte("plain text")); got != "jpeg" {
		t.Errorf("imageFormat(text) = %q, want jpeg fallback", got)
	}
}
