package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/jjenkins/foirequests/internal/model"
)

// HomeMetrics holds the counts shown on the home page
type HomeMetrics struct {
	TotalSummaries int
	ByKind         map[model.SummarisableType]int
	HasData        bool
}

var kindLabels = map[model.SummarisableType]string{
	model.TypeInfoRequest:           "Requests",
	model.TypeDraftInfoRequest:      "Draft requests",
	model.TypeInfoRequestBatch:      "Batch requests",
	model.TypeDraftInfoRequestBatch: "Draft batch requests",
}

// Home renders the landing page
func Home(metrics HomeMetrics) templ.Component {
	return Layout("Home", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &writer{w: w}

		p.printf("<h1>FOI requests</h1>\n")
		if !metrics.HasData {
			p.printf("<p>No requests have been summarised yet. Run <code>foirequests resync</code> after importing.</p>\n")
			return p.err
		}

		p.printf("<p class=\"total\">%d summarised requests</p>\n<dl>\n", metrics.TotalSummaries)
		for _, typ := range model.SummarisableTypes {
			p.printf("<dt>%s</dt><dd>%d</dd>\n", kindLabels[typ], metrics.ByKind[typ])
		}
		p.printf("</dl>\n")

		return p.err
	}))
}

// Summaries renders the summary search page
func Summaries(results []model.RequestSummary, query string) templ.Component {
	return Layout("Requests", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &writer{w: w}

		p.printf(`<h1>Requests</h1>
<input type="search" name="q" value="%s" hx-get="/summaries" hx-trigger="keyup changed delay:300ms" hx-target="#results">
<table>
<thead><tr><th>Title</th><th>Public bodies</th><th>Kind</th></tr></thead>
<tbody id="results">
`, templ.EscapeString(query))
		if p.err != nil {
			return p.err
		}
		if err := SummariesTableBody(results).Render(ctx, w); err != nil {
			return err
		}
		p.printf("</tbody>\n</table>\n")

		return p.err
	}))
}

// SummariesTableBody renders the result rows alone, for htmx swaps
func SummariesTableBody(results []model.RequestSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &writer{w: w}

		if len(results) == 0 {
			p.printf("<tr><td colspan=\"3\">No matching requests.</td></tr>\n")
			return p.err
		}
		for _, sum := range results {
			names := sum.PublicBodyNames.String
			if !sum.PublicBodyNames.Valid {
				names = "-"
			}
			p.printf(`<tr data-owner="%s"><td>%s</td><td>%s</td><td>%s</td></tr>`+"\n",
				templ.EscapeString(sum.Summarisable.String()),
				templ.EscapeString(sum.Title),
				templ.EscapeString(names),
				kindLabels[sum.Summarisable.Type])
		}

		return p.err
	})
}
