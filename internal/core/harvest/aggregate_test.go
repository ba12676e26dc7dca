package harvest

import (
	"testing"

	"harvester/internal/core/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateDuplicateRemap(t *testing.T) {
	s := newTestService(nil)
	input := &table.Table{
		Header: []string{table.ColBaseName, table.ColURL, "Notes"},
		Rows: []table.Row{
			{table.ColBaseName: "A", table.ColURL: "u1", "Notes": "keep me"},
			{table.ColBaseName: "B", table.ColURL: "u1", "Notes": ""},
			{table.ColBaseName: "C", table.ColURL: "u2", "Notes": ""},
		},
	}
	results := map[string]*ScrapeResult{
		"u1": {ScreenshotFile: "images/A.png", LogoFile: "images/A-1.png", Data: `{"x":1}`, Status: StatusSuccess},
		"u2": {ScreenshotFile: "images/C.png", Status: StatusSuccess},
	}

	out := s.aggregate(input, results)
	require.Len(t, out.Rows, 3, "output has exactly as many rows as input")

	assert.Equal(t, string(StatusSuccess), out.Rows[0][table.ColStatus])
	assert.Equal(t, "keep me", out.Rows[0]["Notes"], "passthrough columns survive verbatim")

	assert.Equal(t, string(StatusDuplicate), out.Rows[1][table.ColStatus])
	assert.Equal(t, "images/A.png", out.Rows[1][table.ColScreenshotFile], "duplicates share the first row's artifacts")
	assert.Equal(t, "images/A-1.png", out.Rows[1][table.ColLogoFile])
	assert.NotEmpty(t, out.Rows[1][table.ColErrorMessage])

	assert.Equal(t, string(StatusSuccess), out.Rows[2][table.ColStatus])
	assert.Equal(t, "images/C.png", out.Rows[2][table.ColScreenshotFile])

	// source result untouched by the duplicate relabeling
	assert.Equal(t, StatusSuccess, results["u1"].Status)
}

func TestAggregateMissingURL(t *testing.T) {
	s := newTestService(nil)
	input := &table.Table{
		Header: []string{table.ColBaseName, table.ColURL},
		Rows: []table.Row{
			{table.ColBaseName: "A", table.ColURL: "u1"},
			{table.ColBaseName: "B", table.ColURL: "u2"},
		},
	}
	results := map[string]*ScrapeResult{
		"u1": {Status: StatusSuccess, ScreenshotFile: "images/A.png"},
	}

	out := s.aggregate(input, results)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, string(StatusError), out.Rows[1][table.ColStatus])
	assert.Equal(t, noteMissing, out.Rows[1][table.ColErrorMessage])
}

func TestAggregateEmptyURLRows(t *testing.T) {
	s := newTestService(nil)
	input := &table.Table{
		Header: []string{table.ColBaseName, table.ColURL},
		Rows: []table.Row{
			{table.ColBaseName: "A", table.ColURL: ""},
			{table.ColBaseName: "B", table.ColURL: "u1"},
		},
	}
	results := map[string]*ScrapeResult{"u1": {Status: StatusSuccess}}

	out := s.aggregate(input, results)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, string(StatusSkipped), out.Rows[0][table.ColStatus])
	assert.Equal(t, noteNoURL, out.Rows[0][table.ColErrorMessage])
	assert.Equal(t, "", out.Rows[0][table.ColScreenshotFile])
}

func TestAggregateHeaderGainsResultColumns(t *testing.T) {
	s := newTestService(nil)
	input := &table.Table{Header: []string{table.ColBaseName, table.ColURL, "Extra"}}
	out := s.aggregate(input, nil)
	assert.Equal(t, []string{
		table.ColBaseName, table.ColURL, "Extra",
		table.ColScreenshotFile, table.ColLogoFile, table.ColScrapedData, table.ColStatus, table.ColErrorMessage,
	}, out.Header)
}
