// Package app builds the long-lived components the binaries share from one
// loaded common.Config.
package app

import (
	"log/slog"
	"os"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/llm/ollama"
	"github.com/joseph-ayodele/challenge-tracker/internal/ocr"
	"github.com/joseph-ayodele/challenge-tracker/internal/pipeline"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
	"github.com/joseph-ayodele/challenge-tracker/internal/retry"
)

// NewLogger installs a JSON slog handler at level as the default logger.
func NewLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func RetryPolicy(cfg *common.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}
}

func DatabaseConfig(cfg *common.Config) repository.Config {
	return repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}
}

func NewExtractor(cfg *common.Config, logger *slog.Logger) *ollama.Client {
	return ollama.NewClient(ollama.Config{
		BaseURL: cfg.LLM.BaseURL,
		Path:    cfg.LLM.Path,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
		Retry:   RetryPolicy(cfg),
	}, logger)
}

// NewImageReader returns nil when OCR is disabled.
func NewImageReader(cfg *common.Config, logger *slog.Logger) *ocr.Reader {
	if !cfg.OCR.Enabled {
		return nil
	}
	runner := ocr.NewExecRunner(logger)
	downloader := ocr.NewDownloader(ocr.DownloadConfig{
		ConnectTimeout: cfg.OCR.ConnectTimeout,
		ReadTimeout:    cfg.OCR.ReadTimeout,
	}, RetryPolicy(cfg), logger)
	engine := ocr.NewTesseract(ocr.TesseractConfig{
		Binary:      cfg.OCR.Tesseract,
		Lang:        cfg.OCR.TesseractLang,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
	}, runner, logger)
	return ocr.NewReader(ocr.Config{
		Tolerance:     cfg.Pipeline.Tolerance,
		HeicConverter: cfg.OCR.HeicConverter,
	}, downloader, engine, runner, logger)
}

// NewPipeline wires the extractor and OCR reader into a submission pipeline.
func NewPipeline(cfg *common.Config, recorder pipeline.Recorder, logger *slog.Logger) *pipeline.Pipeline {
	var images pipeline.ImageReader
	if r := NewImageReader(cfg, logger); r != nil {
		images = r
	}
	return pipeline.NewPipeline(pipeline.Config{Tolerance: cfg.Pipeline.Tolerance}, NewExtractor(cfg, logger), images, recorder, logger)
}
