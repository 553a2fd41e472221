package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/retry"
)

// DownloadConfig separates the short connect budget from the longer read budget.
type DownloadConfig struct {
	ConnectTimeout time.Duration // default 3s
	ReadTimeout    time.Duration // default 10s
	MaxBytes       int64         // default constants.MaxImageBytes
}

// Downloader fetches attachment bytes with bearer auth and retries transient failures.
type Downloader struct {
	client   *http.Client
	policy   retry.Policy
	maxBytes int64
	logger   *slog.Logger
}

func NewDownloader(cfg DownloadConfig, policy retry.Policy, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 3 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = constants.MaxImageBytes
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   4,
	}
	return &Downloader{
		client:   &http.Client{Transport: transport, Timeout: cfg.ConnectTimeout + cfg.ReadTimeout},
		policy:   policy,
		maxBytes: cfg.MaxBytes,
		logger:   logger,
	}
}

// Download GETs url, retrying transport errors, 408, 429 and 5xx. Any final
// failure is reported as DownloadFailed.
func (d *Downloader) Download(ctx context.Context, url, token string) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	data, err := retry.Do(ctx, d.policy, d.logger, "ocr.download", func(ctx context.Context, attempt int) ([]byte, error) {
		d.logger.Debug("ocr.download.attempt", "req_id", reqID, "url", url, "attempt", attempt)
		return d.fetch(ctx, url, token)
	})
	if err != nil {
		d.logger.Error("ocr.download.failed",
			"req_id", reqID, "url", url, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewKindError(common.KindDownloadFailed, "ocr.download", err)
	}

	d.logger.Debug("ocr.download.ok",
		"req_id", reqID, "url", url, "bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func (d *Downloader) fetch(ctx context.Context, url, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			d.logger.Warn("ocr.download.body_close_error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		statusErr := fmt.Errorf("non-2xx status: %d", resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return nil, statusErr
		}
		return nil, retry.Permanent(statusErr)
	}

	// an HTML body on 200 usually means the auth token was rejected and we got a login page
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return nil, retry.Permanent(fmt.Errorf("unexpected content type %q", ct))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > d.maxBytes {
		return nil, retry.Permanent(fmt.Errorf("image exceeds %d bytes", d.maxBytes))
	}
	return data, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
