package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/app"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/llm"
)

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		logger.Error("usage: extract \"<text>\" [discipline-hint]")
		os.Exit(2)
	}
	req := llm.ExtractRequest{
		Text:          strings.TrimSpace(os.Args[1]),
		ReferenceDate: time.Now().UTC(),
	}
	if len(os.Args) >= 3 {
		d, ok := constants.Canonicalize(os.Args[2])
		if !ok {
			logger.Error("unknown discipline", "arg", os.Args[2], "valid", constants.AsStringSlice())
			os.Exit(2)
		}
		req.DisciplineHint = d
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := app.NewExtractor(cfg, logger)
	start := time.Now()
	m, raw, err := client.ExtractMetric(ctx, req)
	if err != nil {
		logger.Error("extraction failed", "kind", common.KindOf(err), "error", err, "raw", string(raw))
		os.Exit(1)
	}
	logger.Info("extraction done", "model", cfg.LLM.Model, "elapsed_ms", time.Since(start).Milliseconds())

	out, _ := json.MarshalIndent(m, "", "  ")
	fmt.Println(string(out))
}
