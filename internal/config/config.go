package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config contains runtime configuration required by the service.
type Config struct {
	StoreDriver string // postgres, duckdb or memory
	DBURL       string
	DuckDBPath  string // empty opens an in-memory database
	HTTPAddr    string
	APIKeys     map[string]string // apiKey -> userID

	LogLevel    string
	LogPretty   bool
	ServiceName string
	InstanceID  string

	RedisAddr            string // empty keeps subscription cursors in memory
	SubscriptionsFile    string
	SubscriptionInterval time.Duration

	OTELEndpoint string // empty disables trace export
}

// Load reads configuration from the environment. CONFIG_FILE may name a
// YAML file of the same settings, keyed by the lower-cased variable name
// (store_driver, db_url, ...); environment variables override it.
// API_KEYS format: "user1:key1,user2:key2"
func Load() (Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		StoreDriver:       src.get("STORE_DRIVER", "postgres"),
		DBURL:             src.get("DB_URL", ""),
		DuckDBPath:        src.get("DUCKDB_PATH", ""),
		HTTPAddr:          src.get("HTTP_ADDR", ":8080"),
		LogLevel:          src.get("LOG_LEVEL", "info"),
		ServiceName:       src.get("SERVICE_NAME", "epcis-query-service"),
		InstanceID:        src.get("INSTANCE_ID", hostname()),
		RedisAddr:         src.get("REDIS_ADDR", ""),
		SubscriptionsFile: src.get("SUBSCRIPTIONS_FILE", ""),
		OTELEndpoint:      src.get("OTEL_ENDPOINT", ""),
	}

	if cfg.LogPretty, err = strconv.ParseBool(src.get("LOG_PRETTY", "false")); err != nil {
		return Config{}, errors.Errorf("LOG_PRETTY must be a boolean, got %q", src.get("LOG_PRETTY", ""))
	}
	if cfg.SubscriptionInterval, err = time.ParseDuration(src.get("SUBSCRIPTION_INTERVAL", "30s")); err != nil {
		return Config{}, errors.Errorf("SUBSCRIPTION_INTERVAL must be a duration, got %q", src.get("SUBSCRIPTION_INTERVAL", ""))
	}
	if cfg.SubscriptionInterval <= 0 {
		return Config{}, errors.New("SUBSCRIPTION_INTERVAL must be positive")
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DBURL == "" {
			return Config{}, errors.New("DB_URL required")
		}
	case "duckdb", "memory":
	default:
		return Config{}, errors.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.APIKeys, err = parseAPIKeys(src.get("API_KEYS", "")); err != nil {
		return Config{}, err
	}
	// Local dev fallback so the service runs out-of-the-box.
	if len(cfg.APIKeys) == 0 {
		cfg.APIKeys["user-key-123"] = "user1"
	}

	return cfg, nil
}

func parseAPIKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		user, key, ok := strings.Cut(p, ":")
		user, key = strings.TrimSpace(user), strings.TrimSpace(key)
		if !ok || user == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "user:key,user:key"`)
		}
		keys[key] = user
	}
	return keys, nil
}

// source resolves a setting from the environment, then the config file.
type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	src := source{file: map[string]string{}}
	if path == "" {
		return src, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return src, errors.Wrapf(err, "failed to read config file %q", path)
	}
	if err := yaml.Unmarshal(b, &src.file); err != nil {
		return src, errors.Wrapf(err, "failed to decode config file %q", path)
	}
	return src, nil
}

func (s source) get(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.file[strings.ToLower(name)]); v != "" {
		return v
	}
	return def
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
