package config

import (
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.SchedulerLiveInterval != 120*time.Second {
		t.Fatalf("unexpected SchedulerLiveInterval: %s", cfg.SchedulerLiveInterval)
	}
	if cfg.SchedulerMinimalInterval != time.Hour {
		t.Fatalf("unexpected SchedulerMinimalInterval: %s", cfg.SchedulerMinimalInterval)
	}
	if cfg.SchedulerMaxCycleFailures != 5 {
		t.Fatalf("unexpected SchedulerMaxCycleFailures: %d", cfg.SchedulerMaxCycleFailures)
	}
	if cfg.SchedulerProviderCheckMinGap != 20*time.Minute {
		t.Fatalf("unexpected SchedulerProviderCheckMinGap: %s", cfg.SchedulerProviderCheckMinGap)
	}
	if cfg.RivalryMaxPointGap != 20 {
		t.Fatalf("unexpected RivalryMaxPointGap: %d", cfg.RivalryMaxPointGap)
	}
	if cfg.ProviderSyncWorkers != 4 {
		t.Fatalf("unexpected ProviderSyncWorkers: %d", cfg.ProviderSyncWorkers)
	}
	if cfg.ProviderSyncRefreshHorizon != 2*time.Hour {
		t.Fatalf("unexpected ProviderSyncRefreshHorizon: %s", cfg.ProviderSyncRefreshHorizon)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected LogLevel: %v", cfg.LogLevel)
	}
	if !cfg.CacheEnabled || cfg.CacheTTL != 60*time.Second {
		t.Fatalf("unexpected cache config: enabled=%v ttl=%s", cfg.CacheEnabled, cfg.CacheTTL)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev/project"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/project" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_ProviderRequiresTokenWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PROVIDER_ENABLED", "true")
	t.Setenv("PROVIDER_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PROVIDER_ENABLED=true without PROVIDER_TOKEN")
	}
}

func TestLoad_ProviderConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PROVIDER_ENABLED", "true")
	t.Setenv("PROVIDER_TOKEN", "token-123")
	t.Setenv("PROVIDER_BASE_URL", "https://provider.example.com/v1")
	t.Setenv("PROVIDER_MAX_RETRIES", "3")
	t.Setenv("PROVIDER_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("PROVIDER_CIRCUIT_FAILURE_COUNT", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ProviderBaseURL != "https://provider.example.com/v1" {
		t.Fatalf("unexpected ProviderBaseURL: %q", cfg.ProviderBaseURL)
	}
	if cfg.ProviderMaxRetries != 3 {
		t.Fatalf("unexpected ProviderMaxRetries: %d", cfg.ProviderMaxRetries)
	}
	if cfg.ProviderRequestsPerSecond != 2.5 {
		t.Fatalf("unexpected ProviderRequestsPerSecond: %f", cfg.ProviderRequestsPerSecond)
	}
	if cfg.ProviderCircuitFailureCount != 7 {
		t.Fatalf("unexpected ProviderCircuitFailureCount: %d", cfg.ProviderCircuitFailureCount)
	}
}

func TestLoad_SchedulerIntervalValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SCHEDULER_LIVE_INTERVAL", "0s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-positive SCHEDULER_LIVE_INTERVAL")
	}
}

func TestLoad_LogLevelParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel != logging.LevelWarn {
		t.Fatalf("unexpected LogLevel: %v", cfg.LogLevel)
	}
}

func TestLoad_PyroscopeRequiresServerWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without server address")
	}
}
