package harvest

import (
	"context"
	"errors"
	"sync"

	"harvester/internal/core/progress"
	"harvester/internal/logger"
	"harvester/internal/platform/browser"

	"github.com/hibiken/asynq"
)

// fakePage is a scriptable stand-in for a browser tab.
type fakePage struct {
	mu sync.Mutex

	html     string
	navErr   error
	quietErr error
	shotErr  error

	elements map[string][]byte // CaptureElement matches
	visible  map[string]bool
	clickErr map[string]error

	onNavigate func()

	navigated []string
	clicked   []string
	evaled    []string
	closed    bool
}

func (p *fakePage) Navigate(url string) error {
	p.mu.Lock()
	p.navigated = append(p.navigated, url)
	p.mu.Unlock()
	if p.onNavigate != nil {
		p.onNavigate()
	}
	return p.navErr
}

func (p *fakePage) WaitQuiet() error         { return p.quietErr }
func (p *fakePage) Content() (string, error) { return p.html, nil }

func (p *fakePage) Screenshot() ([]byte, error) {
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return []byte("full-page-png"), nil
}

func (p *fakePage) CaptureElement(selector string) ([]byte, error) {
	if buf, ok := p.elements[selector]; ok {
		return buf, nil
	}
	return nil, browser.ErrNoElement
}

func (p *fakePage) IsVisible(selector string) bool { return p.visible[selector] }

func (p *fakePage) Click(selector string) error {
	if err := p.clickErr[selector]; err != nil {
		return err
	}
	p.mu.Lock()
	p.clicked = append(p.clicked, selector)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Eval(js string) error {
	p.mu.Lock()
	p.evaled = append(p.evaled, js)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

type fakeBrowser struct {
	mu      sync.Mutex
	newPage func() *fakePage
	pageErr error
	pages   []*fakePage
	closed  bool
}

func (b *fakeBrowser) NewPage() (browser.Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	p := &fakePage{}
	if b.newPage != nil {
		p = b.newPage()
	}
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// fakeExtractor scripts the AI capability.
type fakeExtractor struct {
	mu    sync.Mutex
	data  string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractPageData(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.data, nil
}

// fakeRegistry records run lifecycle transitions in memory.
type fakeRegistry struct {
	mu       sync.Mutex
	statuses []string
	output   string
	failure  error
}

func (f *fakeRegistry) mark(status string) {
	f.mu.Lock()
	f.statuses = append(f.statuses, status)
	f.mu.Unlock()
}

func (f *fakeRegistry) InitPending(_ context.Context, _, _ string) error {
	f.mark("pending")
	return nil
}

func (f *fakeRegistry) SetRunning(_ context.Context, _ string) error {
	f.mark("running")
	return nil
}

func (f *fakeRegistry) Complete(_ context.Context, _, outputPath string) error {
	f.mu.Lock()
	f.output = outputPath
	f.mu.Unlock()
	f.mark("completed")
	return nil
}

func (f *fakeRegistry) Cancelled(_ context.Context, _, outputPath string) error {
	f.mu.Lock()
	f.output = outputPath
	f.mu.Unlock()
	f.mark("cancelled")
	return nil
}

func (f *fakeRegistry) Fail(_ context.Context, _ string, cause error) error {
	f.mu.Lock()
	f.failure = cause
	f.mu.Unlock()
	f.mark("failed")
	return nil
}

func (f *fakeRegistry) PublishProgress(_ context.Context, _ string, _ progress.Snapshot) {}

func (f *fakeRegistry) lastStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return ""
	}
	return f.statuses[len(f.statuses)-1]
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	err   error
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ string, _ int) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func newTestService(llm PageExtractor) *Service {
	return &Service{log: logger.New("test"), llm: llm}
}

func newTestReporter() *progress.Reporter {
	return progress.New(logger.New("test"), 0, nil)
}

var errBoom = errors.New("boom")
