package main

import (
	"context"
	"flag"
	"log"
	"os"
	"screenshot-tests/internal/config"
	"screenshot-tests/internal/logging"
	"screenshot-tests/internal/runnable"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case float64:
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return any(floatValue).(T)
		}
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", envOrDefaultValue("CONFIG", ""), "Path to a YAML configuration file")
	flag.BoolVar(&runnable.Debug, "debug", envOrDefaultValue("DEBUG", false), "Enable pprof handlers and text logging")

	flag.Parse()

	c := config.Default()
	if configPath != "" {
		var err error
		if c, err = config.LoadFile(configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	m, err := c.Method()
	if err != nil {
		log.Fatalf("Invalid comparison method: %v", err)
	}

	logger, err := logging.New(os.Stderr, runnable.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx := context.Background()

	recorded, err := c.Open(ctx, c.Storage.Recorded, logging.Logr(logger))
	if err != nil {
		log.Fatalf("Failed to create recorded storage: %v", err)
	}
	failures, err := c.Open(ctx, c.Storage.Failures, logging.Logr(logger))
	if err != nil {
		log.Fatalf("Failed to create failure storage: %v", err)
	}

	server := runnable.NewServer(recorded, failures, m)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
