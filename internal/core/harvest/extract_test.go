package harvest

import (
	"context"
	"encoding/json"
	"testing"

	"harvester/internal/core/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<html><head><title>Acme</title></head><body>
<header><h1 class="headline">  Welcome to Acme  </h1></header>
<span class="price">$42</span>
<p class="empty">   </p>
</body></html>`

func decodeFields(t *testing.T, data string) map[string]interface{} {
	t.Helper()
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(data), &fields))
	return fields
}

func TestExtractWithSelectors(t *testing.T) {
	s := newTestService(nil)
	rep := newTestReporter()

	queries := mergeFieldQueries("price=.price, headline=.headline", "title=//title")
	fields := decodeFields(t, s.extractWithSelectors(sampleHTML, queries, "u1", rep))

	assert.Equal(t, "$42", fields["price"])
	assert.Equal(t, "Welcome to Acme", fields["headline"], "text content is trimmed")
	assert.Equal(t, "Acme", fields["title"])
}

func TestExtractWithSelectorsMissingAndEmpty(t *testing.T) {
	s := newTestService(nil)
	rep := newTestReporter()

	queries := mergeFieldQueries("missing=.nope, blank=.empty", "")
	fields := decodeFields(t, s.extractWithSelectors(sampleHTML, queries, "u1", rep))

	v, ok := fields["missing"]
	require.True(t, ok, "missing selectors still produce a field")
	assert.Nil(t, v)
	assert.Nil(t, fields["blank"], "empty text records as null")
}

func TestExtractWithSelectorsIsIdempotent(t *testing.T) {
	s := newTestService(nil)
	rep := newTestReporter()
	queries := mergeFieldQueries("price=.price", "headline=//h1")

	first := s.extractWithSelectors(sampleHTML, queries, "u1", rep)
	second := s.extractWithSelectors(sampleHTML, queries, "u1", rep)
	assert.Equal(t, first, second)
}

func TestExtractDataSelectorsWinOverAI(t *testing.T) {
	llm := &fakeExtractor{data: `{"site_name":"from-ai"}`}
	s := newTestService(llm)
	rep := newTestReporter()
	pg := &fakePage{html: sampleHTML}

	item := table.WorkItem{URL: "u1", Row: table.Row{}}
	rc := RunConfig{UseAIFallback: true, Selectors: Selectors{CSS: "price=.price"}}

	data := s.extractData(context.Background(), pg, item, rc, rep)
	fields := decodeFields(t, data)
	assert.Equal(t, "$42", fields["price"])
	assert.Equal(t, 0, llm.calls, "AI must not run when selectors apply")
}

func TestExtractDataRowOverridesGlobal(t *testing.T) {
	s := newTestService(nil)
	rep := newTestReporter()
	pg := &fakePage{html: sampleHTML}

	item := table.WorkItem{URL: "u1", Row: table.Row{table.ColCSS: "headline=.headline"}}
	rc := RunConfig{Selectors: Selectors{CSS: "price=.price"}}

	fields := decodeFields(t, s.extractData(context.Background(), pg, item, rc, rep))
	assert.Contains(t, fields, "headline")
	assert.NotContains(t, fields, "price", "row-level spec fully replaces the global CSS list")
}

func TestExtractDataAIFallback(t *testing.T) {
	llm := &fakeExtractor{data: `{"site_name":"Acme"}`}
	s := newTestService(llm)
	rep := newTestReporter()
	pg := &fakePage{html: sampleHTML}
	item := table.WorkItem{URL: "u1", Row: table.Row{}}

	data := s.extractData(context.Background(), pg, item, RunConfig{UseAIFallback: true}, rep)
	assert.Equal(t, `{"site_name":"Acme"}`, data, "AI JSON is stored verbatim")
	assert.Equal(t, 1, llm.calls)
}

func TestExtractDataAIFailureDegradesToEmptyObject(t *testing.T) {
	s := newTestService(&fakeExtractor{err: errBoom})
	rep := newTestReporter()
	pg := &fakePage{html: sampleHTML}
	item := table.WorkItem{URL: "u1", Row: table.Row{}}

	data := s.extractData(context.Background(), pg, item, RunConfig{UseAIFallback: true}, rep)
	assert.Equal(t, emptyData, data)
}

func TestExtractDataNoCredential(t *testing.T) {
	s := newTestService(nil)
	rep := newTestReporter()
	pg := &fakePage{html: sampleHTML}
	item := table.WorkItem{URL: "u1", Row: table.Row{}}

	data := s.extractData(context.Background(), pg, item, RunConfig{UseAIFallback: true}, rep)
	assert.Equal(t, emptyData, data)
}

func TestExtractDataNoStrategy(t *testing.T) {
	s := newTestService(nil)
	rep := newTestReporter()
	pg := &fakePage{html: sampleHTML}
	item := table.WorkItem{URL: "u1", Row: table.Row{}}

	assert.Equal(t, "", s.extractData(context.Background(), pg, item, RunConfig{}, rep))
}
