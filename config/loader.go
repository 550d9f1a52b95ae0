package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path (skipped when path is empty), merges it
// on top of Defaults, loads .env if present and applies AMM_* overrides. The
// returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose AMM_* variable is set and non-empty.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.ProgramID, "AMM_PROGRAM_ID")

	// ── Server ──
	setInt(&cfg.Server.Port, "AMM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "AMM_SERVER_CORS_ORIGINS")
	setFloat64(&cfg.Server.RateLimitRPS, "AMM_SERVER_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateLimitBurst, "AMM_SERVER_RATE_LIMIT_BURST")
	setStr(&cfg.Server.JWTSecret, "AMM_SERVER_JWT_SECRET")
	setStringSlice(&cfg.Server.AdminIdentities, "AMM_SERVER_ADMIN_IDENTITIES")
	setDuration(&cfg.Server.ReadTimeout, "AMM_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "AMM_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "AMM_SERVER_SHUTDOWN_TIMEOUT")

	// ── Database ──
	setStr(&cfg.Database.Driver, "AMM_DATABASE_DRIVER")
	setStr(&cfg.Database.DSN, "AMM_DATABASE_DSN")
	setBool(&cfg.Database.RunMigrations, "AMM_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "AMM_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "AMM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AMM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AMM_REDIS_DB")
	setStr(&cfg.Redis.Channel, "AMM_REDIS_CHANNEL")

	// ── Telemetry ──
	setInt(&cfg.Telemetry.BufferSize, "AMM_TELEMETRY_BUFFER_SIZE")
	setBool(&cfg.Telemetry.PersistEvents, "AMM_TELEMETRY_PERSIST_EVENTS")
	setBool(&cfg.Telemetry.LogRecords, "AMM_TELEMETRY_LOG_RECORDS")

	// ── Collateral ──
	setStr(&cfg.Collateral.Asset, "AMM_COLLATERAL_ASSET")
	setStr(&cfg.Collateral.MaxMint, "AMM_COLLATERAL_MAX_MINT")

	// ── Log ──
	setStr(&cfg.Log.Level, "AMM_LOG_LEVEL")
	setStr(&cfg.Log.Format, "AMM_LOG_FORMAT")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
