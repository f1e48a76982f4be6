package capture

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	diffimage "screenshot-tests/internal/diff/image"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/net/html"
)

type PlaywrightConfig struct {
	ViewportWidth  int
	ViewportHeight int

	Timeout time.Duration
	Delay   time.Duration

	Headless                  bool
	ChromeDevtoolsProtocolURL string
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timeout:        30 * time.Second,
		Delay:          3 * time.Second,
		Headless:       true,
	}
}

type CaptureOptions struct {
	Headers       map[string]string
	MaskSelectors []string
}

// PlaywrightSurface is a loaded browser page. Every method must be called
// from the goroutine that opened it.
type PlaywrightSurface struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	owned   bool
}

func OpenPlaywrightSurface(ctx context.Context, url string, c PlaywrightConfig, captureOptions CaptureOptions) (s *PlaywrightSurface, err error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	s = &PlaywrightSurface{pw: pw}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if c.ChromeDevtoolsProtocolURL == "" {
		s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		s.owned = true
	} else {
		s.browser, err = pw.Chromium.ConnectOverCDP(c.ChromeDevtoolsProtocolURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to browser via CDP at %s: %w", c.ChromeDevtoolsProtocolURL, err)
		}
	}

	s.page, err = s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	if err := s.page.SetViewportSize(c.ViewportWidth, c.ViewportHeight); err != nil {
		return nil, fmt.Errorf("failed to set viewport size: %w", err)
	}

	if len(captureOptions.Headers) > 0 {
		if err := s.page.SetExtraHTTPHeaders(captureOptions.Headers); err != nil {
			return nil, fmt.Errorf("failed to set HTTP headers: %w", err)
		}
	}

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(c.Timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(captureOptions.MaskSelectors) > 0 {
		if err := s.mask(captureOptions.MaskSelectors); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *PlaywrightSurface) mask(selectors []string) error {
	unique := make([]byte, 8)
	if _, err := rand.Read(unique); err != nil {
		return fmt.Errorf("failed to generate unique identifier: %w", err)
	}
	maskClassName := fmt.Sprintf("mask-%s", hex.EncodeToString(unique))

	maskCSS := fmt.Sprintf(`
.%s {
  position: relative !important;
}
.%s::after {
  content: "" !important;
  position: absolute !important;
  inset: 0 !important;
  background-color: black !important;
  z-index: 2147483646 !important;
  pointer-events: none !important;
}
`, maskClassName, maskClassName)

	script := fmt.Sprintf(`(selectors) => {
		const style = document.createElement('style');
		style.textContent = %q;
		document.head.appendChild(style);

		selectors.forEach(selector => {
			document.querySelectorAll(selector).forEach(element => {
				element.classList.add(%q);
			});
		});
	}`, maskCSS, maskClassName)

	trimmed := make([]string, 0, len(selectors))
	for _, selector := range selectors {
		if selector = strings.TrimSpace(selector); selector != "" {
			trimmed = append(trimmed, selector)
		}
	}

	if _, err := s.page.Evaluate(script, trimmed); err != nil {
		return fmt.Errorf("failed to mask selectors: %w", err)
	}
	return nil
}

func (s *PlaywrightSurface) Size(ctx context.Context) (image.Point, error) {
	v, err := s.page.Evaluate(`() => [document.documentElement.scrollWidth, document.documentElement.scrollHeight]`)
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to measure page: %w", err)
	}

	dims, ok := v.([]interface{})
	if !ok || len(dims) != 2 {
		return image.Point{}, fmt.Errorf("unexpected page dimensions %v", v)
	}

	var size [2]int
	for i, d := range dims {
		switch n := d.(type) {
		case int:
			size[i] = n
		case float64:
			size[i] = int(n)
		default:
			return image.Point{}, fmt.Errorf("unexpected page dimension %v", d)
		}
	}
	return image.Pt(size[0], size[1]), nil
}

func (s *PlaywrightSurface) Render(ctx context.Context, viewport image.Rectangle) (*image.NRGBA, error) {
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Type:     playwright.ScreenshotTypePng,
		FullPage: playwright.Bool(true),
		Clip: &playwright.Rect{
			X:      float64(viewport.Min.X),
			Y:      float64(viewport.Min.Y),
			Width:  float64(viewport.Dx()),
			Height: float64(viewport.Dy()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return diffimage.ToNRGBA(img), nil
}

// Hierarchy parses the current DOM of the page.
func (s *PlaywrightSurface) Hierarchy(ctx context.Context) (*html.Node, error) {
	content, err := s.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML content: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML content: %w", err)
	}
	return doc, nil
}

func (s *PlaywrightSurface) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil && s.owned {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	return nil
}
