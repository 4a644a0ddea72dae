package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Sim       SimConfig
	Telemetry TelemetryConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type SimConfig struct {
	TickInterval    time.Duration // wall-clock cadence of the stepping loop
	Seed            int64         // 0 means derive from current time
	DetectRadiusM   float64
	DetectThreshold int
}

type TelemetryConfig struct {
	Enabled  bool
	Interval time.Duration
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Sim: SimConfig{
			TickInterval:    getEnvDuration("SIM_TICK_INTERVAL", time.Second),
			Seed:            getEnvInt64("SIM_SEED", 0),
			DetectRadiusM:   getEnvFloat("SIM_DETECT_RADIUS_M", 3000),
			DetectThreshold: getEnvInt("SIM_DETECT_THRESHOLD", 12),
		},
		Telemetry: TelemetryConfig{
			Enabled:  getEnvBool("TELEMETRY_ENABLED", true),
			Interval: getEnvDuration("TELEMETRY_INTERVAL", 30*time.Second),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/spill-tracker.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Sim.TickInterval < 10*time.Millisecond {
		return fmt.Errorf("sim tick interval must be at least 10ms")
	}
	if c.Sim.DetectRadiusM <= 0 {
		return fmt.Errorf("detection radius must be positive")
	}
	if c.Sim.DetectThreshold < 1 {
		return fmt.Errorf("detection threshold must be at least 1")
	}
	if c.Telemetry.Interval < time.Second {
		return fmt.Errorf("telemetry interval must be at least 1 second")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
