package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string

	// Object storage holding tenant files and backup archives.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string

	// SchedulerConcurrency bounds how many due schedules one tick
	// processes in parallel.
	SchedulerConcurrency int
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		TemporalAddress: getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_LISTEN_ADDR", ":9100"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServiceName:     getEnv("SERVICE_NAME", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
	}

	concurrency, err := getEnvInt("SCHEDULER_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	cfg.SchedulerConcurrency = concurrency

	return cfg, nil
}

// Validate checks that the fields required by the given service are set.
func (c *Config) Validate(service string) error {
	var missing []string

	required := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch service {
	case "api":
		required("DATABASE_URL", c.DatabaseURL)
		required("TEMPORAL_ADDRESS", c.TemporalAddress)
		required("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
	case "worker":
		required("DATABASE_URL", c.DatabaseURL)
		required("TEMPORAL_ADDRESS", c.TemporalAddress)
		required("S3_ENDPOINT", c.S3Endpoint)
		required("S3_BUCKET", c.S3Bucket)
	}

	if c.SchedulerConcurrency < 1 {
		missing = append(missing, "SCHEDULER_CONCURRENCY (must be >= 1)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config for %s: %s", service, strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
