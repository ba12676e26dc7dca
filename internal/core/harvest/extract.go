package harvest

import (
	"context"
	"encoding/json"
	"strings"

	"harvester/internal/core/progress"
	"harvester/internal/core/table"
	"harvester/internal/platform/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// emptyData is what the AI path degrades to when the capability fails.
const emptyData = "{}"

// extractData picks the extraction strategy for one URL. A non-empty selector
// spec (row-level or global) means selector-driven extraction exclusively;
// the AI fallback only runs when no selectors apply and it is enabled.
func (s *Service) extractData(ctx context.Context, pg browser.Page, item table.WorkItem, rc RunConfig, rep *progress.Reporter) string {
	cssSpec := item.Row.Get(table.ColCSS)
	if cssSpec == "" {
		cssSpec = rc.Selectors.CSS
	}
	xpathSpec := item.Row.Get(table.ColXPath)
	if xpathSpec == "" {
		xpathSpec = rc.Selectors.XPath
	}

	queries := mergeFieldQueries(cssSpec, xpathSpec)
	if len(queries) > 0 {
		html, err := pg.Content()
		if err != nil {
			rep.Warnf("could not read page content for %s: %v", item.URL, err)
			return emptyData
		}
		return s.extractWithSelectors(html, queries, item.URL, rep)
	}

	if rc.UseAIFallback {
		return s.extractWithAI(ctx, pg, item.URL, rep)
	}
	return ""
}

// extractWithSelectors resolves each field query independently against the
// rendered HTML. A missing element or empty text is a warning and a null
// field, never a failure.
func (s *Service) extractWithSelectors(html string, queries []fieldQuery, url string, rep *progress.Reporter) string {
	cssDoc, cssErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	xpathDoc, xpathErr := htmlquery.Parse(strings.NewReader(html))

	fields := make(map[string]interface{}, len(queries))
	for _, q := range queries {
		var text string
		var found bool
		switch q.Kind {
		case kindCSS:
			if cssErr != nil {
				break
			}
			sel := cssDoc.Find(q.Query).First()
			if sel.Length() > 0 {
				text = strings.TrimSpace(sel.Text())
				found = true
			}
		case kindXPath:
			if xpathErr != nil {
				break
			}
			node, err := htmlquery.Query(xpathDoc, q.Query)
			if err == nil && node != nil {
				text = strings.TrimSpace(htmlquery.InnerText(node))
				found = true
			}
		}

		if !found {
			rep.Warnf("selector %q matched nothing on %s", q.Query, url)
			fields[q.Name] = nil
			continue
		}
		if text == "" {
			rep.Warnf("selector %q matched an empty element on %s", q.Query, url)
			fields[q.Name] = nil
			continue
		}
		fields[q.Name] = text
	}

	b, err := json.Marshal(fields)
	if err != nil {
		rep.Warnf("could not encode extracted fields for %s: %v", url, err)
		return emptyData
	}
	return string(b)
}

// extractWithAI sends the rendered HTML to the LLM capability. Any failure
// (no credential, transport error, malformed answer) degrades to an empty
// data object; the URL still succeeds.
func (s *Service) extractWithAI(ctx context.Context, pg browser.Page, url string, rep *progress.Reporter) string {
	if s.llm == nil {
		rep.Warnf("AI extraction requested for %s but no API key is configured", url)
		return emptyData
	}
	html, err := pg.Content()
	if err != nil {
		rep.Warnf("could not read page content for %s: %v", url, err)
		return emptyData
	}
	data, err := s.llm.ExtractPageData(ctx, html)
	if err != nil {
		rep.Warnf("AI extraction failed for %s: %v", url, err)
		return emptyData
	}
	return data
}
