package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/llm"
	"github.com/joseph-ayodele/challenge-tracker/internal/retry"
)

var _ llm.MetricExtractor = (*Client)(nil)

type generateResponse struct {
	Completion string `json:"completion"`
	Response   string `json:"response"`
}

// ExtractMetric implements llm.MetricExtractor. Transport failures and
// 408/429/5xx responses are retried; a completion that does not parse is not.
func (c *Client) ExtractMetric(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedMetric, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(req.Text),
		"discipline_hint", req.DisciplineHint,
	)

	completion, err := c.Complete(ctx, llm.BuildPrompt(req))
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedMetric{}, nil, err
	}

	out, raw, err := llm.ParseCompletion(completion, req.DisciplineHint, c.log)
	if err != nil {
		c.log.Warn("llm.extract.parse_failed",
			"req_id", rid, "kind", common.KindOf(err), "error", err,
			"completion", truncate(completion, 512),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedMetric{}, raw, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"date", out.DateString(),
		"discipline", out.Discipline,
		"value", out.Value,
		"unit", out.Unit,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, raw, nil
}

// Complete posts prompt and returns the completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(c.cfg.Path, "/")

	raw, err := retry.Do(ctx, c.cfg.Retry, c.log, "llm.generate", func(ctx context.Context, attempt int) ([]byte, error) {
		raw, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, nil, c.log)
		if err != nil {
			var se *llm.StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return nil, retry.Permanent(err)
			}
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return "", common.NewKindError(common.KindBackendUnavailable, "llm.generate", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", common.NewKindError(common.KindMalformedExtraction, "llm.generate", fmt.Errorf("decode response: %w", err))
	}
	if gr.Completion != "" {
		return gr.Completion, nil
	}
	return gr.Response, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
