package harvest

import (
	"harvester/internal/core/table"
)

// aggregate remaps the unique-URL results back onto every original input row,
// in input order. The first-seen row for a URL takes the recorded result;
// later rows sharing that URL take a clone relabeled DUPLICATE. Rows whose
// URL never produced a result (cancellation, or no URL at all) still get a
// row; the output always covers every input row exactly once.
func (s *Service) aggregate(input *table.Table, results map[string]*ScrapeResult) *table.Table {
	out := &table.Table{Header: table.OutputHeader(input.Header)}
	seen := make(map[string]bool)

	for _, row := range input.Rows {
		outRow := table.Row{}
		for col, v := range row {
			outRow[col] = v
		}

		url := row.Get(table.ColURL)
		var res *ScrapeResult
		switch {
		case url == "":
			res = &ScrapeResult{Status: StatusSkipped, ErrorMessage: noteNoURL}
		case results[url] == nil:
			res = &ScrapeResult{Status: StatusError, ErrorMessage: noteMissing}
		case seen[url]:
			res = results[url].clone()
			res.Status = StatusDuplicate
			res.ErrorMessage = noteDuplicate
		default:
			seen[url] = true
			res = results[url]
		}

		outRow[table.ColScreenshotFile] = res.ScreenshotFile
		outRow[table.ColLogoFile] = res.LogoFile
		outRow[table.ColScrapedData] = res.Data
		outRow[table.ColStatus] = string(res.Status)
		outRow[table.ColErrorMessage] = res.ErrorMessage
		out.Rows = append(out.Rows, outRow)
	}
	return out
}
