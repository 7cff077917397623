package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"nasi-kandar-bot/apperr"
	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/metrics"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	ReceiptQuestion = "Is this a receipt?"
	TotalQuestion   = "What is the total amount?"

	minAnswerScore        = 0.5
	defaultOracleTimeout  = 30 * time.Second
	receiptTempFilePrefix = "receipt-*.jpg"
)

var affirmativeTokens = []string{"yes", "true", "receipt", "invoice"}

// Answer is one visual question answering result.
type Answer struct {
	Text  string
	Score float64
}

// ImageOracle answers a natural-language question about an image on disk.
type ImageOracle interface {
	Ask(ctx context.Context, imagePath, question string) (Answer, error)
}

// ReceiptVerifier decides whether an uploaded photo looks like a payment receipt.
type ReceiptVerifier struct {
	oracle  ImageOracle
	timeout time.Duration
	tempDir string
	log     *logger.Logger
	metrics *metrics.Metrics
}

type VerifierOption func(*ReceiptVerifier)

func WithOracleTimeout(d time.Duration) VerifierOption {
	return func(v *ReceiptVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithTempDir sets where receipt images are staged. Empty uses os.TempDir.
func WithTempDir(dir string) VerifierOption {
	return func(v *ReceiptVerifier) {
		v.tempDir = dir
	}
}

func WithVerifierLogger(l *logger.Logger) VerifierOption {
	return func(v *ReceiptVerifier) {
		v.log = l
	}
}

func WithVerifierMetrics(m *metrics.Metrics) VerifierOption {
	return func(v *ReceiptVerifier) {
		v.metrics = m
	}
}

func NewReceiptVerifier(oracle ImageOracle, opts ...VerifierOption) *ReceiptVerifier {
	v := &ReceiptVerifier{oracle: oracle, timeout: defaultOracleTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Verify fails open: whenever the oracle cannot give an answer it returns (true, err)
// so the order still completes and the caller can flag it for a manual check.
func (v *ReceiptVerifier) Verify(ctx context.Context, image []byte) (bool, error) {
	if v == nil || v.oracle == nil {
		v.record("unavailable")
		return true, apperr.New(apperr.CodeDependency, "receipt oracle not configured")
	}
	if len(image) == 0 {
		v.record("unavailable")
		return true, apperr.New(apperr.CodeValidation, "receipt image is empty")
	}

	path, err := writeTempImage(v.tempDir, image)
	if err != nil {
		v.record("unavailable")
		return true, apperr.Wrap(apperr.CodeDependency, err, "stage receipt image")
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			v.log.Warn(ctx, "remove receipt temp file", rmErr, "path", path)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var receipt, total Answer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := v.ask(gctx, path, ReceiptQuestion)
		receipt = a
		return err
	})
	g.Go(func() error {
		a, err := v.ask(gctx, path, TotalQuestion)
		total = a
		return err
	})
	if err := g.Wait(); err != nil {
		v.record("unavailable")
		return true, apperr.Wrap(apperr.CodeDependency, err, "receipt oracle")
	}

	ok := AcceptsReceipt(receipt, total)
	if ok {
		v.record("accepted")
	} else {
		v.record("rejected")
	}
	v.log.Debug(ctx, "receipt verified",
		"accepted", ok,
		"receipt_answer", receipt.Text, "receipt_score", receipt.Score,
		"total_answer", total.Text, "total_score", total.Score,
	)
	return ok, nil
}

func (v *ReceiptVerifier) ask(ctx context.Context, path, question string) (a Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("oracle panic on %q: %v", question, r)
		}
	}()
	return v.oracle.Ask(ctx, path, question)
}

func (v *ReceiptVerifier) record(result string) {
	if v == nil {
		return
	}
	v.metrics.ReceiptVerification(result)
}

// AcceptsReceipt applies the acceptance rule to the two oracle answers.
func AcceptsReceipt(receipt, total Answer) bool {
	if !isAffirmative(receipt.Text) || receipt.Score <= minAnswerScore {
		return false
	}
	return strings.TrimSpace(total.Text) != "" && total.Score > minAnswerScore
}

func isAffirmative(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range affirmativeTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func writeTempImage(dir string, image []byte) (string, error) {
	f, err := os.CreateTemp(dir, receiptTempFilePrefix)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(image); err != nil {
		return "", multierr.Combine(err, f.Close(), os.Remove(name))
	}
	if err := f.Close(); err != nil {
		return "", multierr.Combine(err, os.Remove(name))
	}
	return name, nil
}
