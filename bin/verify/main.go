package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
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
	var method string
	var tolerance float64
	flag.StringVar(&configPath, "config", envOrDefaultValue("CONFIG", ""), "Path to a YAML configuration file")
	flag.BoolVar(&debug, "debug", envOrDefaultValue("DEBUG", false), "Log in text format")
	flag.StringVar(&method, "method", envOrDefaultValue("METHOD", ""), "Comparison method (shift-tolerant, rms or exact), overrides the config file")
	flag.Float64Var(&tolerance, "tolerance", envOrDefaultValue("TOLERANCE", -1.0), "Largest score that still passes, overrides the config file")

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
	if method != "" {
		c.Comparison.Method = method
	}
	if tolerance >= 0 {
		c.Comparison.Tolerance = tolerance
	}
	m, err := c.Method()
	if err != nil {
		log.Fatalf("Invalid comparison method: %v", err)
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
	failures, err := c.Open(ctx, c.Storage.Failures, logging.Logr(logger))
	if err != nil {
		log.Fatalf("Failed to create failure storage: %v", err)
	}

	records, err := metadata.Load(ctx, recorded)
	if err != nil {
		log.Fatalf("Failed to load metadata: %v", err)
	}

	verifier := verify.NewVerifier(recorded, reference, failures, m)
	verifier.Log = logging.Logr(logger).WithName("verify")
	verifier.Failures.Log = logging.Logr(logger).WithName("artifact")

	outcome, err := verifier.Verify(ctx, records)
	if err != nil {
		var missing *verify.MissingImageError
		if errors.As(err, &missing) {
			logger.Error(missing.Error())
			os.Exit(1)
		}
		log.Fatalf("Failed to verify screenshots: %v", err)
	}

	switch outcome.Kind {
	case verify.NoImages:
		logger.Warn("No screenshots to verify")
	case verify.Mismatch:
		for _, item := range outcome.Items {
			logger.Warn(fmt.Sprintf("Image %s has changed. difference=%v", item.Key, item.Difference))
		}
		os.Exit(1)
	default:
		logger.Info("All screenshots match", "method", m.String(), "records", len(records))
	}
}
