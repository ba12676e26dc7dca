// Package browser wraps the headless-browser capability the harvest pipeline
// runs against. The orchestrator only sees the Browser and Page interfaces;
// the Playwright implementation lives behind Launch.
package browser

import (
	"errors"
	"fmt"
	"sync"

	"harvester/internal/logger"

	"github.com/playwright-community/playwright-go"
)

// ErrNoElement is returned by CaptureElement when no visible element matches.
var ErrNoElement = errors.New("no matching element")

// Browser hands out isolated pages. One Browser instance is shared by all
// workers of a run; each worker holds at most one Page at a time.
type Browser interface {
	NewPage() (Page, error)
	Close() error
}

// Page is a single tab. Navigate and Screenshot failures are fatal for the
// URL being processed; everything else is best effort.
type Page interface {
	Navigate(url string) error
	WaitQuiet() error
	Content() (string, error)
	Screenshot() ([]byte, error)
	CaptureElement(selector string) ([]byte, error)
	IsVisible(selector string) bool
	Click(selector string) error
	Eval(js string) error
	Close()
}

type Options struct {
	NavTimeoutMs  int
	IdleTimeoutMs int
}

type Engine struct {
	log     *logger.Logger
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Playwright and a headless Chromium. A failure here is fatal
// to the whole run; callers must not fall back to a partial pool.
func Launch(opts Options) (*Engine, error) {
	if opts.NavTimeoutMs <= 0 {
		opts.NavTimeoutMs = 30000
	}
	if opts.IdleTimeoutMs <= 0 {
		opts.IdleTimeoutMs = 5000
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright run: %w", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			"--disable-blink-features=AutomationControlled",
			"--no-first-run",
			"--disable-default-apps",
			"--disable-extensions",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}
	return &Engine{log: logger.New("Browser"), pw: pw, browser: b, opts: opts}, nil
}

func (e *Engine) NewPage() (Page, error) {
	ctx, err := e.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return nil, fmt.Errorf("browser context creation failed: %w", err)
	}
	p, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		return nil, fmt.Errorf("page creation failed: %w", err)
	}
	return &page{log: e.log, ctx: ctx, page: p, opts: e.opts}, nil
}

// Close releases the browser and the Playwright driver exactly once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if err := e.browser.Close(); err != nil {
			e.closeErr = err
		}
		if err := e.pw.Stop(); err != nil && e.closeErr == nil {
			e.closeErr = err
		}
	})
	return e.closeErr
}

type page struct {
	log  *logger.Logger
	ctx  playwright.BrowserContext
	page playwright.Page
	opts Options
}

func (p *page) Navigate(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.opts.NavTimeoutMs)),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *page) WaitQuiet() error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(p.opts.IdleTimeoutMs)),
	})
}

func (p *page) Content() (string, error) {
	return p.page.Content()
}

func (p *page) Screenshot() ([]byte, error) {
	buf, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  playwright.Float(float64(p.opts.NavTimeoutMs)),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("screenshot capture resulted in empty image")
	}
	return buf, nil
}

func (p *page) CaptureElement(selector string) ([]byte, error) {
	loc := p.page.Locator(selector).First()
	visible, err := loc.IsVisible()
	if err != nil || !visible {
		return nil, ErrNoElement
	}
	buf, err := loc.Screenshot(playwright.LocatorScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		return nil, fmt.Errorf("element capture failed: %w", err)
	}
	return buf, nil
}

func (p *page) IsVisible(selector string) bool {
	visible, err := p.page.Locator(selector).First().IsVisible()
	return err == nil && visible
}

func (p *page) Click(selector string) error {
	if err := p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(2000),
	}); err != nil {
		return err
	}
	// let dismiss animations settle before capturing
	p.page.WaitForTimeout(400)
	return nil
}

func (p *page) Eval(js string) error {
	_, err := p.page.Evaluate(js)
	return err
}

func (p *page) Close() {
	_ = p.page.Close()
	_ = p.ctx.Close()
}
