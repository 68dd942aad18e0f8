package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	// Store
	Env         string // "dev" | "prod"
	Store       string // "memory" | "sqlite" | "postgres"
	DBPath      string // e.g. "./data/registrar.db"
	PostgresDSN string

	// Fault injection.  Rates are probabilities in [0,1].
	StoreFailureRate     float64
	NotifyFailureRate    float64
	ReconnectSuccessRate float64
	FaultSeed            uint64

	// Change session retry policy
	MaxAttempts    int
	AttemptTimeout time.Duration

	// Notifier
	Notifier        string // "simulated" | "noop" | "redis" | "kafka"
	RedisAddr       string
	RedisChannel    string
	KafkaBrokers    []string
	KafkaTopic      string
	DispatchSeconds int // background flush interval, 0 = off

	// Notification retention
	NotificationRetentionDays int // 0 = keep forever
	PruneIntervalHours        int // how often the pruner runs (default 6)

	SeedDev bool
}

var defaults = map[string]any{
	"http_addr":                   ":8080",
	"grpc_addr":                   ":9090",
	"env":                         "dev",
	"store":                       "sqlite",
	"db_path":                     "./data/registrar.db",
	"postgres_dsn":                "",
	"store_failure_rate":          0.10,
	"notify_failure_rate":         0.05,
	"reconnect_success_rate":      0.8,
	"fault_seed":                  0,
	"max_attempts":                3,
	"attempt_timeout_ms":          2000,
	"notifier":                    "simulated",
	"redis_addr":                  "localhost:6379",
	"redis_channel":               "registrar.notifications",
	"kafka_brokers":               "localhost:9092",
	"kafka_topic":                 "registrar.notifications",
	"dispatch_interval_seconds":   30,
	"notification_retention_days": 30,
	"prune_interval_hours":        6,
	"seed_dev":                    false,
}

// Load reads defaults, then registrar.yaml from configPath if present, then
// REGISTRAR_* environment variables.  Only a malformed config file is an
// error; bad values fall back to their defaults.
func Load(configPath string) (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	v.SetConfigName("registrar")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("REGISTRAR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	env := strings.ToLower(str(v, "env"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		HTTPAddr: str(v, "http_addr"),
		GRPCAddr: str(v, "grpc_addr"),

		Env:         env,
		Store:       oneOf(v, "store", "memory", "sqlite", "postgres"),
		DBPath:      str(v, "db_path"),
		PostgresDSN: v.GetString("postgres_dsn"),

		StoreFailureRate:     rate(v, "store_failure_rate"),
		NotifyFailureRate:    rate(v, "notify_failure_rate"),
		ReconnectSuccessRate: rate(v, "reconnect_success_rate"),
		FaultSeed:            uint64(nonNegInt(v, "fault_seed")),

		MaxAttempts:    positiveInt(v, "max_attempts"),
		AttemptTimeout: time.Duration(nonNegInt(v, "attempt_timeout_ms")) * time.Millisecond,

		Notifier:        oneOf(v, "notifier", "simulated", "noop", "redis", "kafka"),
		RedisAddr:       str(v, "redis_addr"),
		RedisChannel:    str(v, "redis_channel"),
		KafkaBrokers:    splitCSV(str(v, "kafka_brokers")),
		KafkaTopic:      str(v, "kafka_topic"),
		DispatchSeconds: nonNegInt(v, "dispatch_interval_seconds"),

		NotificationRetentionDays: nonNegInt(v, "notification_retention_days"),
		PruneIntervalHours:        positiveInt(v, "prune_interval_hours"),

		SeedDev: boolean(v, "seed_dev"),
	}
}

func str(v *viper.Viper, key string) string {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return fmt.Sprint(defaults[key])
	}
	return s
}

func oneOf(v *viper.Viper, key string, allowed ...string) string {
	s := strings.ToLower(str(v, key))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return fmt.Sprint(defaults[key])
}

func nonNegInt(v *viper.Viper, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil || n < 0 {
		return defaults[key].(int)
	}
	return n
}

func positiveInt(v *viper.Viper, key string) int {
	n := nonNegInt(v, key)
	if n == 0 {
		return defaults[key].(int)
	}
	return n
}

func rate(v *viper.Viper, key string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
	if err != nil || f < 0 || f > 1 {
		return defaults[key].(float64)
	}
	return f
}

func boolean(v *viper.Viper, key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return defaults[key].(bool)
	}
	return b
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
