package ollama

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/internal/retry"
)

// Config for the Ollama client.
type Config struct {
	BaseURL        string        // default http://localhost:11434
	Path           string        // default /api/generate
	Model          string        // default "llama2"
	ConnectTimeout time.Duration // default 3s
	Timeout        time.Duration // whole request; default 13s
	Retry          retry.Policy
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Path == "" {
		cfg.Path = "/api/generate"
	}
	if cfg.Model == "" {
		cfg.Model = "llama2"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 13 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		log:        logger,
	}
}
