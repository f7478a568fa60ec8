package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"
)

func ProvideConfig() Config {
	return Config{
		Port:     envAsInt("PORT", 8080),
		BasePath: requireEnv("BASE_PATH"),
		ControlPlane: controlPlane{
			URL:     requireEnv("CONTROL_PLANE_URL"),
			Token:   os.Getenv("CONTROL_PLANE_TOKEN"),
			Timeout: envAsDuration("CONTROL_PLANE_TIMEOUT", 30*time.Second),
		},
		Kubeconfig: os.Getenv("KUBECONFIG"),
		RabbitMqURL: rabbitmq{
			Host:     os.Getenv("RABBITMQ_HOST"),
			Port:     envAsInt("RABBITMQ_PORT", 5672),
			Username: os.Getenv("RABBITMQ_USERNAME"),
			Password: os.Getenv("RABBITMQ_PASSWORD"),
			Exchange: envOrDefault("RABBITMQ_EXCHANGE", "dbaas"),
		},
		Polling: polling{
			AllocatedInterval: envAsDuration("ALLOCATED_POLL_INTERVAL", 10*time.Second),
			DebounceDelay:     envAsDuration("EXPECTED_DEBOUNCE_DELAY", 500*time.Millisecond),
			SettleDelay:       envAsDuration("STATUS_SETTLE_DELAY", 4*time.Second),
		},
		Session: session{
			IdleTTL:      envAsDuration("SESSION_IDLE_TTL", 10*time.Minute),
			ReapInterval: envAsDuration("SESSION_REAP_INTERVAL", time.Minute),
		},
		Tracing: tracing{
			JaegerURL:   os.Getenv("JAEGER_URL"),
			ServiceName: envOrDefault("SERVICE_NAME", "im-dbaas"),
		},
		Log: logging{
			Level:  envAsLevel("LOG_LEVEL", slog.LevelInfo),
			Pretty: envAsBool("LOG_PRETTY", false),
		},
	}
}

type Config struct {
	Port         int
	BasePath     string
	ControlPlane controlPlane
	// Kubeconfig is the path to a kubeconfig whose contexts are named after the registered
	// Kubernetes clusters. Resources and logs are read from Kubernetes directly when it's set.
	Kubeconfig  string
	RabbitMqURL rabbitmq
	Polling     polling
	Session     session
	Tracing     tracing
	Log         logging
}

type controlPlane struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type rabbitmq struct {
	Host     string
	Port     int
	Username string
	Password string
	Exchange string
}

// Enabled is true if a RabbitMQ host is configured. Events are then published to it.
func (r rabbitmq) Enabled() bool {
	return r.Host != ""
}

func (r rabbitmq) GetUrl() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", r.Username, r.Password, r.Host, r.Port)
}

type polling struct {
	AllocatedInterval time.Duration
	DebounceDelay     time.Duration
	SettleDelay       time.Duration
}

type session struct {
	IdleTTL      time.Duration
	ReapInterval time.Duration
}

// tracing is disabled unless a Jaeger collector URL is configured.
type tracing struct {
	JaegerURL   string
	ServiceName string
}

type logging struct {
	Level  slog.Level
	Pretty bool
}

func requireEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Fatalf("Can't find environment varialbe: %s\n", key)
	}
	return value
}

func envOrDefault(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	return value
}

func envAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("Can't parse %s as integer: %s", key, err.Error())
	}
	return value
}

func envAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Fatalf("Can't parse %s as boolean: %s", key, err.Error())
	}
	return value
}

func envAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Fatalf("Can't parse %s as duration: %s", key, err.Error())
	}
	if value <= 0 {
		log.Fatalf("%s must be positive, got %s", key, value)
	}
	return value
}

func envAsLevel(key string, defaultValue slog.Level) slog.Level {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(valueStr)); err != nil {
		log.Fatalf("Can't parse %s as log level: %s", key, err.Error())
	}
	return level
}
