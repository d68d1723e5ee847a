// Package config loads the company service configuration from defaults,
// an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gartstein/companies/internal/company/db"
	"github.com/gartstein/companies/internal/company/scheduler"
	"github.com/gartstein/companies/internal/company/tracing"
	"github.com/spf13/viper"
)

// DefaultPath is read when no config file is given and it exists.
const DefaultPath = "internal/company/config/config.yaml"

const (
	keyPort            = "port"
	keyGRPCPort        = "grpc_port"
	keyResetInterval   = "reset_interval"
	keyJWTSecret       = "jwt_secret"
	keyKafkaBrokers    = "kafka_brokers"
	keyTopic           = "topic"
	keyDBDriver        = "db_driver"
	keyDBPath          = "db_path"
	keyDBHost          = "db_host"
	keyDBPort          = "db_port"
	keyDBUser          = "db_user"
	keyDBPassword      = "db_password"
	keyDBName          = "db_name"
	keyDBSSLMode       = "db_sslmode"
	keyDBMaxWait       = "db_max_wait"
	keyTracingExporter = "tracing_exporter"
	keyOTLPEndpoint    = "otlp_endpoint"
	keyLogDevelopment  = "log_development"
)

// Config is the resolved service configuration.
type Config struct {
	Port            int
	GRPCPort        int
	ResetInterval   time.Duration
	JWTSecret       string
	KafkaBrokers    []string
	Topic           string
	DB              db.Config
	TracingExporter string
	OTLPEndpoint    string
	LogDevelopment  bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, 4000)
	v.SetDefault(keyGRPCPort, 4001)
	v.SetDefault(keyResetInterval, scheduler.DefaultResetInterval.String())
	v.SetDefault(keyJWTSecret, "")
	v.SetDefault(keyKafkaBrokers, "")
	v.SetDefault(keyTopic, "companies")
	v.SetDefault(keyDBDriver, "")
	v.SetDefault(keyDBPath, "companies-audit.db")
	v.SetDefault(keyDBHost, "localhost")
	v.SetDefault(keyDBPort, 5432)
	v.SetDefault(keyDBUser, "postgres")
	v.SetDefault(keyDBPassword, "")
	v.SetDefault(keyDBName, "companies")
	v.SetDefault(keyDBSSLMode, "disable")
	v.SetDefault(keyDBMaxWait, "30s")
	v.SetDefault(keyTracingExporter, tracing.ExporterNone)
	v.SetDefault(keyOTLPEndpoint, "localhost:4317")
	v.SetDefault(keyLogDevelopment, false)
}

// Load resolves the configuration. An explicit path must exist; with an
// empty path DefaultPath is used when present. Environment variables named
// after the upper-cased keys take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	reset, err := duration(v, keyResetInterval)
	if err != nil {
		return nil, err
	}
	maxWait, err := duration(v, keyDBMaxWait)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:          v.GetInt(keyPort),
		GRPCPort:      v.GetInt(keyGRPCPort),
		ResetInterval: reset,
		JWTSecret:     v.GetString(keyJWTSecret),
		KafkaBrokers:  stringList(v.Get(keyKafkaBrokers)),
		Topic:         v.GetString(keyTopic),
		DB: db.Config{
			Driver:   strings.ToLower(v.GetString(keyDBDriver)),
			Path:     v.GetString(keyDBPath),
			Host:     v.GetString(keyDBHost),
			Port:     v.GetInt(keyDBPort),
			User:     v.GetString(keyDBUser),
			Password: v.GetString(keyDBPassword),
			DBName:   v.GetString(keyDBName),
			SSLMode:  v.GetString(keyDBSSLMode),
			MaxWait:  maxWait,
		},
		TracingExporter: strings.ToLower(v.GetString(keyTracingExporter)),
		OTLPEndpoint:    v.GetString(keyOTLPEndpoint),
		LogDevelopment:  v.GetBool(keyLogDevelopment),
	}, nil
}

// duration accepts Go duration strings ("1h", "90s") and bare integers as
// milliseconds.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, fmt.Errorf("%s: empty duration", strings.ToUpper(key))
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(raw + "ms")
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", strings.ToUpper(key), raw)
	}
	return d, nil
}

// stringList reads a comma separated string or a YAML list.
func stringList(raw interface{}) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []interface{}:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	case []string:
		parts = val
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: out of range: %d", c.Port))
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT: out of range: %d", c.GRPCPort))
	}
	if c.ResetInterval <= 0 {
		errs = append(errs, fmt.Errorf("RESET_INTERVAL: must be positive, got %s", c.ResetInterval))
	}
	if c.Topic == "" && len(c.KafkaBrokers) > 0 {
		errs = append(errs, errors.New("TOPIC: required when KAFKA_BROKERS is set"))
	}
	switch c.DB.Driver {
	case "", db.DriverSQLite, db.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DB.Driver))
	}
	if c.DB.MaxWait < 0 {
		errs = append(errs, errors.New("DB_MAX_WAIT: must not be negative"))
	}
	switch c.TracingExporter {
	case "", tracing.ExporterNone, tracing.ExporterStdout, tracing.ExporterOTLP:
	default:
		errs = append(errs, fmt.Errorf("TRACING_EXPORTER: unsupported exporter %q", c.TracingExporter))
	}
	return errors.Join(errs...)
}

// HTTPEndpoint is the HTTP listen address.
func (c *Config) HTTPEndpoint() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GRPCEndpoint is the gRPC listen address, empty when gRPC is disabled.
func (c *Config) GRPCEndpoint() string {
	if c.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// AuditEnabled reports whether events are recorded in a database.
func (c *Config) AuditEnabled() bool {
	return c.DB.Driver != ""
}

// Tracing returns the tracing subsystem configuration.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{Exporter: c.TracingExporter, OTLPEndpoint: c.OTLPEndpoint}
}
