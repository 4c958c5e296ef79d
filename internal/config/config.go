package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	DBURL          string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	CORSAllowedOrigins []string
	InternalJobToken   string

	// Matching thresholds and the scheduled-time windows. The default
	// same-timezone window is two hours; sources that publish local
	// kickoff times get the wider cross-timezone window.
	MatchAutoAccept        float64
	MatchManualReview      float64
	MatchAmbiguityGap      float64
	GameTimeTolerance      time.Duration
	GameCrossTZTolerance   time.Duration
	GameCrossTZSources     []string
	GameFuzzyMaxDistance   int
	ReviewCandidateLimit   int
	ReconciliationWindow   time.Duration
	ReconciliationWorkers  int
	ReconciliationInterval time.Duration

	SyncJobTimeout   time.Duration
	SyncMaxWorkers   int
	SyncFetchRetries int
	SyncRetryBackoff time.Duration
	SyncTickInterval time.Duration
	SyncGameInterval time.Duration
	SyncPlayerInterval time.Duration
	SyncSports       []string

	StatsfeedEnabled                 bool
	StatsfeedBaseURL                 string
	StatsfeedToken                   string
	StatsfeedTimeout                 time.Duration
	StatsfeedMaxRetries              int
	StatsfeedCircuitEnabled          bool
	StatsfeedCircuitFailureCount     int
	StatsfeedCircuitOpenTimeout      time.Duration
	StatsfeedCircuitHalfOpenMaxReq   int

	CacheEnabled bool
	CacheTTL     time.Duration

	UptraceEnabled bool
	UptraceDSN     string

	PprofEnabled bool
	PprofAddr    string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	LogLevel logging.Level
}

func Load() (Config, error) {
	cfg := Config{}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}
	cfg.AppEnv = appEnv
	cfg.ServiceName = getEnv("SERVICE_NAME", "sportsync")
	cfg.ServiceVersion = getEnv("SERVICE_VERSION", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.DBURL = strings.TrimSpace(getEnv("DB_URL", ""))

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout

	cfg.CORSAllowedOrigins = splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	cfg.InternalJobToken = strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))

	autoAccept, err := getEnvAsFloat("MATCH_AUTO_ACCEPT", 0.85)
	if err != nil {
		return Config{}, err
	}
	manualReview, err := getEnvAsFloat("MATCH_MANUAL_REVIEW", 0.70)
	if err != nil {
		return Config{}, err
	}
	if autoAccept <= manualReview {
		return Config{}, fmt.Errorf("MATCH_AUTO_ACCEPT (%v) must be greater than MATCH_MANUAL_REVIEW (%v)", autoAccept, manualReview)
	}
	ambiguityGap, err := getEnvAsFloat("MATCH_AMBIGUITY_GAP", 0.05)
	if err != nil {
		return Config{}, err
	}
	cfg.MatchAutoAccept = autoAccept
	cfg.MatchManualReview = manualReview
	cfg.MatchAmbiguityGap = ambiguityGap

	gameTolerance, err := time.ParseDuration(getEnv("GAME_TIME_TOLERANCE", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GAME_TIME_TOLERANCE: %w", err)
	}
	crossTZTolerance, err := time.ParseDuration(getEnv("GAME_TIME_TOLERANCE_CROSS_TZ", "6h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GAME_TIME_TOLERANCE_CROSS_TZ: %w", err)
	}
	if crossTZTolerance < gameTolerance {
		return Config{}, fmt.Errorf("GAME_TIME_TOLERANCE_CROSS_TZ must be >= GAME_TIME_TOLERANCE")
	}
	cfg.GameTimeTolerance = gameTolerance
	cfg.GameCrossTZTolerance = crossTZTolerance
	cfg.GameCrossTZSources = splitAndTrim(getEnv("GAME_CROSS_TZ_SOURCES", ""))

	fuzzyDistance, err := getEnvAsInt("GAME_FUZZY_MAX_DISTANCE", 2)
	if err != nil {
		return Config{}, err
	}
	cfg.GameFuzzyMaxDistance = fuzzyDistance

	reviewLimit, err := getEnvAsInt("REVIEW_CANDIDATE_LIMIT", 5)
	if err != nil {
		return Config{}, err
	}
	cfg.ReviewCandidateLimit = reviewLimit

	reconWindow, err := time.ParseDuration(getEnv("RECONCILIATION_WINDOW", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RECONCILIATION_WINDOW: %w", err)
	}
	reconWorkers, err := getEnvAsInt("RECONCILIATION_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}
	reconInterval, err := time.ParseDuration(getEnv("RECONCILIATION_INTERVAL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RECONCILIATION_INTERVAL: %w", err)
	}
	cfg.ReconciliationWindow = reconWindow
	cfg.ReconciliationWorkers = reconWorkers
	cfg.ReconciliationInterval = reconInterval

	jobTimeout, err := time.ParseDuration(getEnv("SYNC_JOB_TIMEOUT", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_JOB_TIMEOUT: %w", err)
	}
	maxWorkers, err := getEnvAsInt("SYNC_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}
	if maxWorkers < 1 {
		return Config{}, fmt.Errorf("SYNC_MAX_WORKERS must be >= 1")
	}
	fetchRetries, err := getEnvAsInt("SYNC_FETCH_RETRIES", 3)
	if err != nil {
		return Config{}, err
	}
	retryBackoff, err := time.ParseDuration(getEnv("SYNC_RETRY_BACKOFF", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_RETRY_BACKOFF: %w", err)
	}
	tickInterval, err := time.ParseDuration(getEnv("SYNC_TICK_INTERVAL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_TICK_INTERVAL: %w", err)
	}
	gameInterval, err := time.ParseDuration(getEnv("SYNC_GAME_INTERVAL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_GAME_INTERVAL: %w", err)
	}
	playerInterval, err := time.ParseDuration(getEnv("SYNC_PLAYER_INTERVAL", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_PLAYER_INTERVAL: %w", err)
	}
	cfg.SyncJobTimeout = jobTimeout
	cfg.SyncMaxWorkers = maxWorkers
	cfg.SyncFetchRetries = fetchRetries
	cfg.SyncRetryBackoff = retryBackoff
	cfg.SyncTickInterval = tickInterval
	cfg.SyncGameInterval = gameInterval
	cfg.SyncPlayerInterval = playerInterval
	cfg.SyncSports = splitAndTrim(getEnv("SYNC_SPORTS", "basketball"))

	statsfeedEnabled, err := strconv.ParseBool(getEnv("STATSFEED_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSFEED_ENABLED: %w", err)
	}
	cfg.StatsfeedEnabled = statsfeedEnabled
	cfg.StatsfeedBaseURL = strings.TrimSpace(getEnv("STATSFEED_BASE_URL", ""))
	cfg.StatsfeedToken = strings.TrimSpace(getEnv("STATSFEED_TOKEN", ""))
	if statsfeedEnabled && cfg.StatsfeedBaseURL == "" {
		return Config{}, fmt.Errorf("STATSFEED_BASE_URL is required when STATSFEED_ENABLED=true")
	}
	statsfeedTimeout, err := time.ParseDuration(getEnv("STATSFEED_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSFEED_TIMEOUT: %w", err)
	}
	statsfeedRetries, err := getEnvAsInt("STATSFEED_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, err
	}
	statsfeedCircuitEnabled, err := strconv.ParseBool(getEnv("STATSFEED_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSFEED_CIRCUIT_ENABLED: %w", err)
	}
	statsfeedFailureCount, err := getEnvAsInt("STATSFEED_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, err
	}
	if statsfeedFailureCount < 1 {
		return Config{}, fmt.Errorf("STATSFEED_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	statsfeedOpenTimeout, err := time.ParseDuration(getEnv("STATSFEED_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSFEED_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	statsfeedHalfOpenMax, err := getEnvAsInt("STATSFEED_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, err
	}
	cfg.StatsfeedTimeout = statsfeedTimeout
	cfg.StatsfeedMaxRetries = statsfeedRetries
	cfg.StatsfeedCircuitEnabled = statsfeedCircuitEnabled
	cfg.StatsfeedCircuitFailureCount = statsfeedFailureCount
	cfg.StatsfeedCircuitOpenTimeout = statsfeedOpenTimeout
	cfg.StatsfeedCircuitHalfOpenMaxReq = statsfeedHalfOpenMax

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}
	cfg.CacheEnabled = cacheEnabled
	cfg.CacheTTL = cacheTTL

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceEnabled = uptraceEnabled
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	cfg.PprofEnabled = pprofEnabled
	cfg.PprofAddr = strings.TrimSpace(getEnv("PPROF_ADDR", ""))
	if cfg.PprofAddr == "" {
		cfg.PprofAddr = ":6060"
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeEnabled = pyroscopeEnabled
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName)
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	cfg.PyroscopeUploadRate = pyroscopeUploadRate

	cfg.LogLevel = parseLogLevel(getEnv("APP_LOG_LEVEL", "info"))

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case EnvDev, EnvStage, EnvProd:
		return v, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
