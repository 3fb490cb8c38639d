package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("WORKFLOW_DRAFT_TTL", "")
	cfg := New()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Minute*10, cfg.Workflow.ChainCacheTTL)
	// пустая строка не парсится как длительность - берётся значение по умолчанию
	assert.Equal(t, time.Hour*2, cfg.Workflow.DraftTTL)
	assert.True(t, cfg.Postgres.MigrateOnStart)
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("WORKFLOW_CHAIN_CACHE_TTL", "30s")
	t.Setenv("CORS_ORIGINS", "http://a.local, http://b.local,")
	t.Setenv("DB_MIGRATE_ON_START", "false")

	cfg := New()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Workflow.ChainCacheTTL)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Postgres.MigrateOnStart)
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	assert.Equal(t, 7, getEnvInt("REDIS_DB", 7))
}
