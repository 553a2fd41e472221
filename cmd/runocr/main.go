package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/internal/app"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/ocr"
)

func main() {
	cfg := common.LoadConfig()
	cfg.OCR.Enabled = true
	logger := app.NewLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		logger.Error("usage", "cmd", "runocr <path|url> [claimed-value]")
		os.Exit(2)
	}
	src := os.Args[1]

	var claimed *float64
	if len(os.Args) >= 3 {
		v, err := strconv.ParseFloat(os.Args[2], 64)
		if err != nil || v <= 0 {
			logger.Error("invalid claimed value", "arg", os.Args[2], "error", err)
			os.Exit(2)
		}
		claimed = &v
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reader := app.NewImageReader(cfg, logger)

	var (
		reading ocr.Reading
		err     error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		reading, err = reader.FetchAndRead(ctx, entity.ImageRef{URL: src, AuthToken: cfg.Slack.BotToken, Name: src})
	} else {
		data, rerr := os.ReadFile(src)
		if rerr != nil {
			logger.Error("failed to read file", "path", src, "error", rerr)
			os.Exit(1)
		}
		reading, err = reader.Read(ctx, data)
	}
	if err != nil {
		logger.Error("ocr failed", "source", src, "kind", common.KindOf(err), "error", err)
		if reading.Text != "" {
			fmt.Println(reading.Text)
		}
		os.Exit(1)
	}

	logger.Info("ocr done", "source", src, "value", reading.Value, "elapsed_ms", reading.Duration.Milliseconds())
	fmt.Println(entity.FormatValue(reading.Value))

	if claimed != nil {
		if err := reader.CheckClaim(reading, *claimed); err != nil {
			fmt.Println("rejected:", err)
			os.Exit(3)
		}
		fmt.Println("accepted")
	}
}
