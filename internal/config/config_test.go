package config

import (
	"testing"
	"time"
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
		t.Fatalf("unexpected default http addr: %q", cfg.HTTPAddr)
	}
	if cfg.MatchAutoAccept != 0.85 {
		t.Fatalf("unexpected default auto accept threshold: %v", cfg.MatchAutoAccept)
	}
	if cfg.MatchManualReview != 0.70 {
		t.Fatalf("unexpected default manual review threshold: %v", cfg.MatchManualReview)
	}
	if cfg.GameTimeTolerance != 2*time.Hour {
		t.Fatalf("unexpected default game time tolerance: %s", cfg.GameTimeTolerance)
	}
	if cfg.GameCrossTZTolerance != 6*time.Hour {
		t.Fatalf("unexpected default cross timezone tolerance: %s", cfg.GameCrossTZTolerance)
	}
	if len(cfg.SyncSports) != 1 || cfg.SyncSports[0] != "basketball" {
		t.Fatalf("unexpected default sync sports: %+v", cfg.SyncSports)
	}
}

func TestLoad_ThresholdOrdering(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("MATCH_AUTO_ACCEPT", "0.6")
	t.Setenv("MATCH_MANUAL_REVIEW", "0.7")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when auto accept <= manual review")
	}
}

func TestLoad_ToleranceOrdering(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("GAME_TIME_TOLERANCE", "3h")
	t.Setenv("GAME_TIME_TOLERANCE_CROSS_TZ", "1h")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when cross timezone tolerance is narrower")
	}
}

func TestLoad_CrossTZSourcesParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("GAME_CROSS_TZ_SOURCES", " odds_api, news_feed ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.GameCrossTZSources) != 2 {
		t.Fatalf("unexpected cross timezone sources length: %d", len(cfg.GameCrossTZSources))
	}
	if cfg.GameCrossTZSources[0] != "odds_api" || cfg.GameCrossTZSources[1] != "news_feed" {
		t.Fatalf("unexpected cross timezone sources: %+v", cfg.GameCrossTZSources)
	}
}

func TestLoad_StatsfeedRequiresBaseURLWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("STATSFEED_ENABLED", "true")
	t.Setenv("STATSFEED_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when STATSFEED_ENABLED=true without STATSFEED_BASE_URL")
	}
}

func TestLoad_StatsfeedConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("STATSFEED_ENABLED", "true")
	t.Setenv("STATSFEED_BASE_URL", "https://stats.example.com")
	t.Setenv("STATSFEED_TOKEN", "token-123")
	t.Setenv("STATSFEED_TIMEOUT", "4s")
	t.Setenv("STATSFEED_MAX_RETRIES", "2")
	t.Setenv("STATSFEED_CIRCUIT_FAILURE_COUNT", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.StatsfeedEnabled {
		t.Fatalf("expected StatsfeedEnabled=true")
	}
	if cfg.StatsfeedBaseURL != "https://stats.example.com" {
		t.Fatalf("unexpected StatsfeedBaseURL: %q", cfg.StatsfeedBaseURL)
	}
	if cfg.StatsfeedTimeout != 4*time.Second {
		t.Fatalf("unexpected StatsfeedTimeout: %s", cfg.StatsfeedTimeout)
	}
	if cfg.StatsfeedMaxRetries != 2 {
		t.Fatalf("unexpected StatsfeedMaxRetries: %d", cfg.StatsfeedMaxRetries)
	}
	if cfg.StatsfeedCircuitFailureCount != 3 {
		t.Fatalf("unexpected StatsfeedCircuitFailureCount: %d", cfg.StatsfeedCircuitFailureCount)
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

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SERVICE_NAME", "sportsync-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "sportsync-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
			t.Fatalf("unexpected first CORS origin: %s", cfg.CORSAllowedOrigins[0])
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "")
		t.Setenv("CACHE_TTL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.CacheEnabled {
			t.Fatalf("expected cache enabled by default")
		}
		if cfg.CacheTTL != 60*time.Second {
			t.Fatalf("unexpected default cache ttl: %s", cfg.CacheTTL)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid CACHE_TTL")
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "debug",
		"info":    "info",
		"warn":    "warn",
		"warning": "warn",
		"error":   "error",
		"":        "info",
		"bogus":   "info",
	}
	for raw, want := range cases {
		if got := parseLogLevel(raw).String(); got != want {
			t.Fatalf("parseLogLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}
