package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/metrics"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const maxQRImageBytes = 5 << 20

var errQRNotConfigured = errors.New("static QR image not configured")

// Artifact is what the customer is shown to pay by QR. Image may be empty for a text-only artifact.
type Artifact struct {
	Provider string
	Image    []byte
	Caption  string
}

func (a Artifact) HasImage() bool {
	return len(a.Image) > 0
}

// ArtifactProvider produces a payment artifact for an amount due.
type ArtifactProvider interface {
	Name() string
	Artifact(ctx context.Context, amount decimal.Decimal) (Artifact, error)
}

func payCaption(amount decimal.Decimal) string {
	return fmt.Sprintf("💳 Scan to pay %s.\nThen upload a photo of your payment receipt here.", FormatMoney(amount))
}

// StaticQR serves the merchant's printed QR from a URL or a local file.
type StaticQR struct {
	URL     string
	Path    string
	Timeout time.Duration
	Client  *http.Client
}

func (s *StaticQR) Name() string { return "static" }

func (s *StaticQR) Artifact(ctx context.Context, amount decimal.Decimal) (Artifact, error) {
	var img []byte
	var err error
	switch {
	case s.URL != "":
		img, err = s.fetch(ctx)
	case s.Path != "":
		img, err = os.ReadFile(s.Path)
	default:
		return Artifact{}, errQRNotConfigured
	}
	if err != nil {
		return Artifact{}, err
	}
	if len(img) == 0 {
		return Artifact{}, errors.New("static QR image is empty")
	}
	return Artifact{Provider: s.Name(), Image: img, Caption: payCaption(amount)}, nil
}

func (s *StaticQR) fetch(ctx context.Context) ([]byte, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build QR request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch QR image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch QR image: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("fetch QR image: unexpected content type %q", ct)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxQRImageBytes))
}

// GeneratedQR renders a QR code carrying the merchant and amount.
type GeneratedQR struct {
	Merchant string
	Size     int
}

func (g *GeneratedQR) Name() string { return "generated" }

func (g *GeneratedQR) Artifact(_ context.Context, amount decimal.Decimal) (Artifact, error) {
	size := g.Size
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(PaymentPayload(g.Merchant, amount), qrcode.Medium, size)
	if err != nil {
		return Artifact{}, fmt.Errorf("encode QR: %w", err)
	}
	return Artifact{Provider: g.Name(), Image: png, Caption: payCaption(amount)}, nil
}

// PaymentPayload is the string encoded into a generated QR.
func PaymentPayload(merchant string, amount decimal.Decimal) string {
	return "PAY|" + merchant + "|" + amount.StringFixed(2)
}

// AmountDueText is the last resort: no image, just the amount.
type AmountDueText struct{}

func (AmountDueText) Name() string { return "text" }

func (AmountDueText) Artifact(_ context.Context, amount decimal.Decimal) (Artifact, error) {
	return Artifact{
		Provider: "text",
		Caption: fmt.Sprintf("💳 Amount due: %s.\nOur QR code is unavailable right now. Please transfer this amount by DuitNow, then upload a photo of your payment receipt here.",
			FormatMoney(amount)),
	}, nil
}

// ArtifactChain tries providers in order and returns the first artifact produced.
type ArtifactChain struct {
	providers []ArtifactProvider
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewArtifactChain(log *logger.Logger, m *metrics.Metrics, providers ...ArtifactProvider) *ArtifactChain {
	return &ArtifactChain{providers: providers, log: log, metrics: m}
}

// Resolve never fails; provider errors are logged and the next provider is tried.
func (c *ArtifactChain) Resolve(ctx context.Context, amount decimal.Decimal) Artifact {
	for _, p := range c.providers {
		a, err := p.Artifact(ctx, amount)
		if err != nil {
			c.metrics.PaymentArtifact(p.Name(), "error")
			if !errors.Is(err, errQRNotConfigured) {
				c.log.Warn(ctx, "payment artifact provider failed", err, "provider", p.Name())
			}
			continue
		}
		c.metrics.PaymentArtifact(p.Name(), "ok")
		return a
	}
	a, _ := AmountDueText{}.Artifact(ctx, amount)
	return a
}
