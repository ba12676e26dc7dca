package harvest

import (
	"context"

	"harvester/internal/core/artifact"
	"harvester/internal/core/progress"
	"harvester/internal/core/table"
	"harvester/internal/platform/browser"
)

// harvestURL runs the per-URL stage sequence: navigate, dismiss obstructions,
// capture visuals, extract data. Only navigation and the full-page screenshot
// are fatal for the URL; every other stage degrades to a warning. The page is
// released on every exit path.
func (s *Service) harvestURL(ctx context.Context, b browser.Browser, item table.WorkItem, rc RunConfig, store *artifact.Store, rep *progress.Reporter) *ScrapeResult {
	res := &ScrapeResult{Status: StatusError}
	baseName := item.Row.Get(table.ColBaseName)

	pg, err := b.NewPage()
	if err != nil {
		res.ErrorMessage = err.Error()
		rep.Errorf("could not open page for %s: %v", item.URL, err)
		return res
	}
	defer pg.Close()

	if err := pg.Navigate(item.URL); err != nil {
		res.ErrorMessage = err.Error()
		rep.Errorf("navigation failed for %s: %v", item.URL, err)
		return res
	}
	if err := pg.WaitQuiet(); err != nil {
		rep.Warnf("network did not settle for %s, proceeding anyway", item.URL)
	}

	s.bypassObstructions(pg, item.URL, rep)

	shot, err := pg.Screenshot()
	if err != nil {
		res.ErrorMessage = err.Error()
		rep.Errorf("screenshot failed for %s: %v", item.URL, err)
		return res
	}
	path, err := store.SaveScreenshot(baseName, shot)
	if err != nil {
		res.ErrorMessage = err.Error()
		rep.Errorf("could not save screenshot for %s: %v", item.URL, err)
		return res
	}
	res.ScreenshotFile = path

	res.LogoFile = s.captureLogo(pg, store, baseName, item.URL, rep)

	res.Data = s.extractData(ctx, pg, item, rc, rep)

	res.Status = StatusSuccess
	res.ErrorMessage = ""
	return res
}
