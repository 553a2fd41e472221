package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
)

func TestWiringFollowsConfig(t *testing.T) {
	t.Setenv("DB_URL", "file:test.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BASE_DELAY", "1s")
	cfg := common.LoadConfig()

	p := RetryPolicy(cfg)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)

	db := DatabaseConfig(cfg)
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, "file:test.db", db.DSN)

	assert.NotNil(t, NewImageReader(cfg, nil))
	assert.NotNil(t, NewPipeline(cfg, nil, nil))

	cfg.OCR.Enabled = false
	assert.Nil(t, NewImageReader(cfg, nil))
}
