package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values. Precedence is
// config/config.json -> defaults -> environment variable overrides.
type AppConfig struct {
	AppPort string
	GinMode string

	// Session workspace settings
	DataDir             string
	SessionTTLHours     int
	SweepMinIntervalMin int
	SweeperIntervalMin  int

	// Upload ceilings
	MaxFileSizeMB    int
	MaxTotalUploadMB int
	MaxFilesPerBatch int

	// Engine
	FileTimeoutSec int

	// Rate limiting: the global bucket guards the whole surface per IP,
	// the route limit feeds the per-route fixed-window limiter.
	RateLimitPerMinute  int
	RouteLimitPerMinute int

	AllowedOrigins []string

	// Redis enables shared-store rate limiting and locking when set.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// loadJSONConfig reads a JSON file into cfg if present. Returns error only
// for invalid JSON; a missing file is silently ignored.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		switch t := m[key].(type) {
		case float64:
			return int(t)
		case int:
			return t
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.GinMode = getString(app, "GinMode")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if v := getInt(app, "RouteLimitPerMinute"); v != 0 {
			out.RouteLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if se, ok := raw["sessions"].(map[string]any); ok {
		out.DataDir = getString(se, "DataDir")
		if v := getInt(se, "TTLHours"); v != 0 {
			out.SessionTTLHours = v
		}
		if v := getInt(se, "SweepMinIntervalMinutes"); v != 0 {
			out.SweepMinIntervalMin = v
		}
		if v := getInt(se, "SweeperIntervalMinutes"); v != 0 {
			out.SweeperIntervalMin = v
		}
	}

	if up, ok := raw["uploads"].(map[string]any); ok {
		if v := getInt(up, "MaxFileSizeMB"); v != 0 {
			out.MaxFileSizeMB = v
		}
		if v := getInt(up, "MaxTotalUploadMB"); v != 0 {
			out.MaxTotalUploadMB = v
		}
		if v := getInt(up, "MaxFilesPerBatch"); v != 0 {
			out.MaxFilesPerBatch = v
		}
	}

	if en, ok := raw["engine"].(map[string]any); ok {
		if v := getInt(en, "FileTimeoutSeconds"); v != 0 {
			out.FileTimeoutSec = v
		}
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.DataDir == "" {
		c.DataDir = "data/sessions"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 24
	}
	if c.SweepMinIntervalMin == 0 {
		c.SweepMinIntervalMin = 60
	}
	if c.SweeperIntervalMin == 0 {
		c.SweeperIntervalMin = 60
	}
	if c.MaxFileSizeMB == 0 {
		c.MaxFileSizeMB = 50
	}
	if c.MaxTotalUploadMB == 0 {
		c.MaxTotalUploadMB = 200
	}
	if c.MaxFilesPerBatch == 0 {
		c.MaxFilesPerBatch = 50
	}
	if c.FileTimeoutSec == 0 {
		c.FileTimeoutSec = 30
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 300
	}
	if c.RouteLimitPerMinute == 0 {
		c.RouteLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("APP_PORT"); v != "" {
		c.AppPort = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.GinMode = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		c.SessionTTLHours = parseIntOr(v, c.SessionTTLHours)
	}
	if v := os.Getenv("SWEEP_MIN_INTERVAL_MINUTES"); v != "" {
		c.SweepMinIntervalMin = parseIntOr(v, c.SweepMinIntervalMin)
	}
	if v := os.Getenv("SWEEPER_INTERVAL_MINUTES"); v != "" {
		c.SweeperIntervalMin = parseIntOr(v, c.SweeperIntervalMin)
	}
	if v := os.Getenv("MAX_FILE_SIZE_MB"); v != "" {
		c.MaxFileSizeMB = parseIntOr(v, c.MaxFileSizeMB)
	}
	if v := os.Getenv("MAX_TOTAL_UPLOAD_MB"); v != "" {
		c.MaxTotalUploadMB = parseIntOr(v, c.MaxTotalUploadMB)
	}
	if v := os.Getenv("MAX_FILES_PER_BATCH"); v != "" {
		c.MaxFilesPerBatch = parseIntOr(v, c.MaxFilesPerBatch)
	}
	if v := os.Getenv("FILE_TIMEOUT_SECONDS"); v != "" {
		c.FileTimeoutSec = parseIntOr(v, c.FileTimeoutSec)
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		c.RateLimitPerMinute = parseIntOr(v, c.RateLimitPerMinute)
	}
	if v := os.Getenv("ROUTE_LIMIT_PER_MINUTE"); v != "" {
		c.RouteLimitPerMinute = parseIntOr(v, c.RouteLimitPerMinute)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.RedisPort = parseIntOr(v, c.RedisPort)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.RedisDB = parseIntOr(v, c.RedisDB)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		c.LogMaxSizeMB = parseIntOr(v, c.LogMaxSizeMB)
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		c.LogMaxBackups = parseIntOr(v, c.LogMaxBackups)
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		c.LogMaxAgeDays = parseIntOr(v, c.LogMaxAgeDays)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
}

func parseIntOr(val string, fallback int) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
