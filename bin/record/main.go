package main

import (
	"context"
	"flag"
	"log"
	"os"
	"screenshot-tests/internal/config"
	"screenshot-tests/internal/logging"
	"screenshot-tests/internal/metadata"
	"screenshot-tests/internal/verify"
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
	var debug bool
	flag.StringVar(&configPath, "config", envOrDefaultValue("CONFIG", ""), "Path to a YAML configuration file")
	flag.BoolVar(&debug, "debug", envOrDefaultValue("DEBUG", false), "Log in text format")

	flag.Parse()

	logger, err := logging.New(os.Stderr, debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	c := config.Default()
	if configPath != "" {
		if c, err = config.LoadFile(configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	ctx := context.Background()

	recorded, err := c.Open(ctx, c.Storage.Recorded, logging.Logr(logger))
	if err != nil {
		log.Fatalf("Failed to create recorded storage: %v", err)
	}
	reference, err := c.Open(ctx, c.Storage.Reference, logging.Logr(logger))
	if err != nil {
		log.Fatalf("Failed to create reference storage: %v", err)
	}

	records, err := metadata.Load(ctx, recorded)
	if err != nil {
		log.Fatalf("Failed to load metadata: %v", err)
	}

	verifier := &verify.Verifier{
		Recorded:  recorded,
		Reference: reference,
		Log:       logging.Logr(logger).WithName("record"),
	}
	if err := verifier.Record(ctx, records); err != nil {
		log.Fatalf("Failed to record screenshots: %v", err)
	}

	failed := 0
	for _, r := range records {
		if r.Failed() {
			failed++
			logger.Warn("Skipped screenshot that failed to capture", "name", r.Name, "error", r.Error)
		}
	}
	logger.Info("Recorded reference images", "recorded", len(records)-failed, "skipped", failed)
}
