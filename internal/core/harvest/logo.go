package harvest

import (
	"errors"

	"harvester/internal/core/artifact"
	"harvester/internal/core/progress"
	"harvester/internal/platform/browser"
)

// logoSelectors are tried in order; the first visible match wins and there is
// no scoring across heuristics. Semantic attribute matches near the header
// come first, then common container patterns, then header-scoped images.
var logoSelectors = []string{
	`header img[alt*="logo" i]`,
	`img[alt*="logo" i]`,
	`img[src*="logo" i]`,
	`[class*="logo" i] img`,
	`[id*="logo" i] img`,
	`.navbar-brand img`,
	`a[href="/"] img`,
	`header img`,
	`header svg`,
	`nav svg`,
}

// captureLogo crops the most likely logo element to {safeBase}-1.png and
// returns its relative path, or "" when nothing usable was found. Never fails
// the pipeline.
func (s *Service) captureLogo(pg browser.Page, store *artifact.Store, baseName, url string, rep *progress.Reporter) string {
	for _, sel := range logoSelectors {
		buf, err := pg.CaptureElement(sel)
		if errors.Is(err, browser.ErrNoElement) {
			continue
		}
		if err != nil {
			rep.Warnf("logo capture failed on %s: %v", url, err)
			return ""
		}
		path, err := store.SaveLogo(baseName, buf)
		if err != nil {
			rep.Warnf("could not save logo for %s: %v", url, err)
			return ""
		}
		return path
	}
	return ""
}
