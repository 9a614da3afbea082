// Package sumsvc writes the daily attendance summary with a generative language model.
package sumsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/retry"
)

const promptText = `You are a helpful school administrator assistant.
Analyze the following daily attendance data and generate a professional, concise summary report in Markdown format.

Data:
%s

The report should include:
1. A headline with the date.
2. A brief statistical summary (Attendance Rate).
3. A list of absent students (if any) with a polite reminder suggestion for the homeroom staff to follow up.
4. An encouraging closing remark.

Use formatting like bolding and bullet points to make it readable.`

type (
	part struct {
		Text string `json:"text"`
	}
	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
		Error *retry.APIError `json:"error,omitempty"`
	}
)

type gemini struct {
	key     string
	model   string
	baseURL string
	client  *rest.Client
	policy  retry.Policy
	logger  core.Logger
}

var _ report.Summarizer = (*gemini)(nil)

func NewGemini(conf core.SummarizerConfig, httpClient *http.Client, logger core.Logger) report.Summarizer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	policy := retry.NewPolicy(conf.MaxRetries, conf.BaseDelay)
	policy.Notify = func(attempt int, delay time.Duration, err error) {
		logger.Warn(fmt.Sprintf("summarizer rate limited, retrying in %s (attempt %d/%d)", delay, attempt, conf.MaxRetries), err)
	}
	return &gemini{
		key:     conf.APIKey,
		model:   conf.Model,
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		client:  &rest.Client{HTTPClient: httpClient},
		policy:  policy,
		logger:  logger,
	}
}

func Prompt(data report.SummaryData) (string, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding summary data")
	}
	return fmt.Sprintf(promptText, raw), nil
}

func (g *gemini) Summarize(ctx context.Context, data report.SummaryData) (string, error) {
	if g.key == "" {
		return "", report.ErrSummarizerDisabled
	}
	prompt, err := Prompt(data)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", errors.Wrap(err, "encoding request")
	}

	var text string
	err = g.policy.Do(ctx, func(ctx context.Context) error {
		text, err = g.generate(ctx, body)
		return err
	})
	return text, err
}

func (g *gemini) generate(ctx context.Context, body []byte) (string, error) {
	res, err := g.client.SendWithContext(ctx, rest.Request{
		Method:      rest.Post,
		BaseURL:     fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model),
		Headers:     map[string]string{"Content-Type": "application/json"},
		QueryParams: map[string]string{"key": g.key},
		Body:        body,
	})
	if err != nil {
		return "", errors.Wrap(err, "calling summarizer")
	}

	var gr generateResponse
	if err := json.Unmarshal([]byte(res.Body), &gr); err != nil && res.StatusCode < 300 {
		return "", errors.Wrap(err, "decoding summarizer response")
	}
	if res.StatusCode >= 300 {
		if gr.Error == nil {
			gr.Error = &retry.APIError{Message: strings.TrimSpace(res.Body)}
		}
		if gr.Error.Code == 0 {
			gr.Error.Code = res.StatusCode
		}
		return "", gr.Error
	}

	var sb strings.Builder
	for _, c := range gr.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String(), nil
}
