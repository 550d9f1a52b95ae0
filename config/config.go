// Package config defines the service configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"milestoneamm/handlers/math/fixedpoint"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Config is the root configuration. Fields are populated from a YAML file
// and then optionally overridden by AMM_* environment variables.
type Config struct {
	// ProgramID namespaces every derived market key.
	ProgramID  string           `yaml:"program_id" validate:"required"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Collateral CollateralConfig `yaml:"collateral"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" validate:"min=1"`
	JWTSecret       string        `yaml:"jwt_secret" validate:"required,min=16"`
	AdminIdentities []string      `yaml:"admin_identities"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the gorm dialect.
type DatabaseConfig struct {
	Driver        string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN           string `yaml:"dsn" validate:"required"`
	RunMigrations bool   `yaml:"run_migrations"`
}

// RedisConfig holds the telemetry pub/sub connection.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
	Channel  string `yaml:"channel" validate:"required_if=Enabled true"`
}

// TelemetryConfig sizes the record emitter.
type TelemetryConfig struct {
	BufferSize    int  `yaml:"buffer_size" validate:"min=1"`
	PersistEvents bool `yaml:"persist_events"`
	LogRecords    bool `yaml:"log_records"`
}

// CollateralConfig describes the settlement asset and the demo faucet.
type CollateralConfig struct {
	Asset string `yaml:"asset" validate:"required"`
	// MaxMint is a decimal amount, e.g. "10000".
	MaxMint string `yaml:"max_mint" validate:"required"`
}

// LogConfig selects zap's level and encoder.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Defaults returns a Config usable for local development.
func Defaults() Config {
	return Config{
		ProgramID: "milestone-amm",
		Server: ServerConfig{
			Port:            8080,
			CORSOrigins:     []string{"*"},
			RateLimitRPS:    20,
			RateLimitBurst:  40,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:        "sqlite",
			DSN:           "file:milestoneamm.db?_pragma=busy_timeout(5000)",
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "amm:records",
		},
		Telemetry: TelemetryConfig{
			BufferSize:    1024,
			PersistEvents: true,
			LogRecords:    true,
		},
		Collateral: CollateralConfig{
			Asset:   "USDC",
			MaxMint: "10000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New()

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.Errorf("config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return errors.Wrap(err, "config validation")
	}
	if _, err := c.Collateral.MaxMintFP(); err != nil {
		return errors.Wrap(err, "collateral.max_mint")
	}
	return nil
}

// MaxMintFP parses MaxMint into fixed point.
func (c CollateralConfig) MaxMintFP() (int64, error) {
	v, err := fixedpoint.Parse(c.MaxMint)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.New("must be positive")
	}
	return v, nil
}

// IsAdmin reports whether identity may use operator endpoints.
func (s ServerConfig) IsAdmin(identity string) bool {
	for _, a := range s.AdminIdentities {
		if a == identity {
			return true
		}
	}
	return false
}
