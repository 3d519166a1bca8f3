package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/jjenkins/foirequests/internal/legislation"
	"github.com/jjenkins/foirequests/internal/refusal"
)

// AdviceView is the data behind the refusal advice page
type AdviceView struct {
	Legislation legislation.Legislation
	RequestID   int64
	Questions   []refusal.Question
	Actions     []refusal.Question
	Refusals    []string
	// Actionable reports whether the viewer may act on an action
	Actionable func(refusal.Question) bool
}

// RefusalAdvice renders the question and action trees for a legislation
func RefusalAdvice(view AdviceView) templ.Component {
	return Layout("Refusal advice", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &writer{w: w}

		p.printf(`<h1>Refusal advice</h1>
<p class="legislation" data-legislation="%s">Advice for requests made under the %s.</p>
`, templ.EscapeString(view.Legislation.Key), templ.EscapeString(view.Legislation.FullName))

		if len(view.Refusals) > 0 {
			p.printf("<section class=\"refusals\"><h2>Refusal reasons recorded</h2><ul>")
			for _, r := range view.Refusals {
				p.printf("<li>%s</li>", templ.EscapeString(r))
			}
			p.printf("</ul></section>\n")
		}

		p.printf("<section class=\"questions\"><h2>Questions</h2>\n")
		writeNodes(p, view.Questions, nil)
		p.printf("</section>\n<section class=\"actions\"><h2>What you can do</h2>\n")
		writeNodes(p, view.Actions, view.Actionable)
		p.printf("</section>\n")

		return p.err
	}))
}

func writeNodes(p *writer, nodes []refusal.Question, actionable func(refusal.Question) bool) {
	if len(nodes) == 0 {
		p.printf("<p class=\"empty\">No advice available.</p>\n")
		return
	}

	p.printf("<ul>\n")
	for _, n := range nodes {
		label := n.Title
		if label == "" {
			label = n.ID
		}
		class := "node"
		if actionable != nil && !actionable(n) {
			class = "node disabled"
		}
		p.printf(`<li class="%s" data-id="%s">%s`, class, templ.EscapeString(n.ID), templ.EscapeString(label))
		if len(n.Suggestions) > 0 {
			writeNodes(p, n.Suggestions, actionable)
		}
		p.printf("</li>\n")
	}
	p.printf("</ul>\n")
}
