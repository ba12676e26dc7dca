package harvest

import "errors"

const TaskTypeHarvest = "harvest:task"

// ErrAlreadyRunning is returned by Start while another run is active.
// Concurrent runs would fight over the browser and the output directory.
var ErrAlreadyRunning = errors.New("a harvest run is already in progress")

// Status is the per-row outcome recorded in the output table.
type Status string

const (
	StatusSuccess   Status = "SUCCESS"
	StatusError     Status = "ERROR"
	StatusSkipped   Status = "SKIPPED"
	StatusDuplicate Status = "DUPLICATE"
)

// ScrapeResult is produced once per unique URL and never mutated afterwards.
// Rows that share a URL with an earlier row get a clone relabeled DUPLICATE.
type ScrapeResult struct {
	ScreenshotFile string `json:"screenshot_file"`
	LogoFile       string `json:"logo_file"`
	Data           string `json:"data"` // JSON text, stored verbatim
	Status         Status `json:"status"`
	ErrorMessage   string `json:"error_message"`
}

func (r *ScrapeResult) clone() *ScrapeResult {
	c := *r
	return &c
}

// Selectors holds global selector specs; per-row CSSSelector/XPathSelector
// columns fully override the matching kind for that row's URL.
type Selectors struct {
	CSS   string `json:"css"`
	XPath string `json:"xpath"`
}

// RunConfig is the per-run request payload. The AI credential is deliberately
// absent: it only ever comes from the environment.
type RunConfig struct {
	InputPath      string    `json:"input_path"`
	OutputDir      string    `json:"output_dir"`
	ImageSubFolder string    `json:"image_subfolder"`
	Selectors      Selectors `json:"selectors"`
	UseAIFallback  bool      `json:"use_ai_fallback"`
	Concurrency    int       `json:"concurrency"`
}

// Payload is the asynq task body for a queued run.
type Payload struct {
	RunID   string    `json:"run_id"`
	Request RunConfig `json:"request"`
}

// Fixed messages written into aggregated rows.
const (
	noteDuplicate = "duplicate of an earlier row with the same URL"
	noteMissing   = "internal error: no result recorded for this URL"
	noteNoURL     = "row has no URL"
)
