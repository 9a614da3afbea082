package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core/retry"
)

// ErrSummarizerDisabled is returned by summarizers running without credentials.
var ErrSummarizerDisabled = errors.New("summarizer API key not configured")

const (
	textNoKey   = "API Key not configured. Unable to generate smart report."
	textQuota   = "Unable to generate report: API Quota Exceeded. Please try again later."
	textFailed  = "Failed to generate report due to an error."
	textNoReply = "No report generated."
)

// Summarizer writes a free-text Markdown report from the day's figures.
type Summarizer interface {
	Summarize(ctx context.Context, data SummaryData) (string, error)
}

// Summary is a generated report. Generated is false when Text is a fallback message.
type Summary struct {
	Data      SummaryData `json:"data"`
	Text      string      `json:"text"`
	Generated bool        `json:"generated"`
}

// FailureText is the operator-facing message for a summarizer failure.
func FailureText(err error) string {
	switch {
	case errors.Is(err, ErrSummarizerDisabled):
		return textNoKey
	case retry.IsRateLimitExhausted(err), retry.IsRateLimit(err):
		return textQuota
	}
	return textFailed
}
