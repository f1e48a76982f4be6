package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/url"
	"os"
	"screenshot-tests/internal/capture"
	"screenshot-tests/internal/config"
	"screenshot-tests/internal/logging"
	"screenshot-tests/internal/screenshot"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/xerrors"
)

type headers []string

func (h *headers) String() string {
	return strings.Join(*h, ", ")
}

func (h *headers) Set(value string) error {
	*h = append(*h, value)
	return nil
}

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

type options struct {
	url            string
	name           string
	description    string
	group          string
	accessibility  bool
	captureOptions capture.CaptureOptions
	playwright     capture.PlaywrightConfig
}

// nameFromURL turns host and path into a name usable as a file stem.
func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "page"
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, u.Host+strings.TrimSuffix(u.Path, "/"))
	return strings.Trim(name, "_")
}

func main() {
	_ = godotenv.Load()

	var configPath string
	var debug bool
	var install bool
	var maskSelectors string
	var headers headers
	o := options{playwright: capture.DefaultPlaywrightConfig()}
	flag.StringVar(&configPath, "config", envOrDefaultValue("CONFIG", ""), "Path to a YAML configuration file")
	flag.BoolVar(&debug, "debug", envOrDefaultValue("DEBUG", false), "Log in text format")
	flag.BoolVar(&install, "install", envOrDefaultValue("INSTALL_BROWSERS", false), "Install the chromium browser before capturing")
	flag.StringVar(&o.name, "name", envOrDefaultValue("NAME", ""), "Screenshot name (defaults to one derived from the URL)")
	flag.StringVar(&o.description, "description", envOrDefaultValue("DESCRIPTION", ""), "Screenshot description")
	flag.StringVar(&o.group, "group", envOrDefaultValue("GROUP", ""), "Screenshot group")
	flag.BoolVar(&o.accessibility, "accessibility", envOrDefaultValue("ACCESSIBILITY", false), "Write accessibility issues next to the hierarchy dump")
	flag.StringVar(&maskSelectors, "mask-selectors", envOrDefaultValue("MASK_SELECTORS", ""), "Comma-separated list of CSS selectors to mask during capture")
	flag.DurationVar(&o.playwright.Delay, "delay", envOrDefaultValue("DELAY", o.playwright.Delay), "Delay before capturing")
	flag.DurationVar(&o.playwright.Timeout, "timeout", envOrDefaultValue("TIMEOUT", o.playwright.Timeout), "Navigation timeout")
	flag.IntVar(&o.playwright.ViewportWidth, "viewport-width", envOrDefaultValue("VIEWPORT_WIDTH", o.playwright.ViewportWidth), "Viewport width in pixels")
	flag.IntVar(&o.playwright.ViewportHeight, "viewport-height", envOrDefaultValue("VIEWPORT_HEIGHT", o.playwright.ViewportHeight), "Viewport height in pixels")
	flag.StringVar(&o.playwright.ChromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", envOrDefaultValue("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Var(&headers, "H", "Add HTTP header (can be used multiple times, e.g., -H 'Accept: text/html' -H 'Authorization: Bearer token')")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatalf("url not specified")
	}
	o.url = args[0]

	if display := os.Getenv("DISPLAY"); display != "" {
		o.playwright.Headless = false
	}
	if maskSelectors != "" {
		o.captureOptions.MaskSelectors = strings.Split(maskSelectors, ",")
	}
	if len(headers) > 0 {
		o.captureOptions.Headers = make(map[string]string)
		for _, header := range headers {
			parts := strings.SplitN(header, ":", 2)
			if len(parts) == 2 {
				o.captureOptions.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
	}
	if o.name == "" {
		o.name = nameFromURL(o.url)
	}

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

	if install {
		if err := playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		}); err != nil {
			log.Fatalf("failed to install playwright browsers: %v", err)
		}
	}

	ctx := context.Background()

	s, err := c.Open(ctx, c.Storage.Recorded, logging.Logr(logger))
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	// Playwright pages are driven from the goroutine that opened them, so
	// all surface work is handed to an owner running on the main goroutine.
	owner := capture.NewOwner()
	album := screenshot.NewAlbum(s, owner).WithLogger(logging.Logr(logger))
	album.Coordinator.TileSize = c.Capture.TileSize
	album.Coordinator.MaxPixels = c.Capture.MaxPixels

	done := make(chan error, 1)
	go func() {
		defer owner.Close()
		done <- run(ctx, album, owner, o)
	}()
	owner.Loop()

	if err := <-done; err != nil {
		var captureErr *capture.CaptureError
		if errors.As(err, &captureErr) {
			logger.Error("Screenshot recorded as failed", "name", captureErr.Name, "reason", captureErr.Reason)
			os.Exit(1)
		}
		log.Fatalf("Failed to capture screenshot: %v", err)
	}
}

func run(ctx context.Context, album *screenshot.Album, owner *capture.Owner, o options) error {
	var recordErr error
	err := owner.Run(ctx, func(ctx context.Context) error {
		surface, err := capture.OpenPlaywrightSurface(ctx, o.url, o.playwright, o.captureOptions)
		if err != nil {
			return err
		}
		defer surface.Close()

		_, recordErr = album.Snap(surface).
			SetName(o.name).
			SetDescription(o.description).
			SetGroup(o.group).
			AddExtra("url", o.url).
			SetTestClass("capture").
			SetTestName(o.name).
			SetIncludeAccessibilityInfo(o.accessibility).
			Record(ctx)
		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to open page: %w", err)
	}

	var captureErr *capture.CaptureError
	if recordErr != nil && !errors.As(recordErr, &captureErr) {
		return recordErr
	}
	if err := album.Flush(ctx); err != nil {
		return xerrors.Errorf("failed to flush metadata: %w", err)
	}
	return recordErr
}
