// Package snippet reduces a raw DOM capture to the compact form fed to
// repair generators. Scripts, styles and tracking noise are stripped with
// a sanitizer that keeps only the attributes locator strategies key on,
// and a markdown rendering is produced as a cheaper textual view of the
// same page.
package snippet

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Snippet is a bounded page excerpt in two renderings.
type Snippet struct {
	// HTML is the sanitized markup, truncated to the budget.
	HTML string

	// Markdown is the textual rendering of the same markup, also
	// truncated to the budget. Empty when conversion produced nothing.
	Markdown string
}

// structuralAttrs are the attributes locator strategies match on.
// Everything else is stripped before the snippet leaves the process.
var structuralAttrs = []string{
	"id", "name", "class", "type", "placeholder", "value",
	"for", "role", "title", "alt",
	"aria-label", "aria-labelledby",
	"data-test", "data-testid",
}

// Builder turns raw DOM captures into prompt-ready snippets. Safe for
// concurrent use.
type Builder struct {
	policy *bluemonday.Policy
	md     *converter.Converter
}

// NewBuilder creates a Builder with the locator-oriented sanitizer policy.
func NewBuilder() *Builder {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"html", "body", "main", "header", "footer", "nav", "section", "article",
		"div", "span", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"form", "fieldset", "legend", "label", "input", "textarea", "select",
		"option", "optgroup", "button", "datalist",
		"a", "ul", "ol", "li", "table", "thead", "tbody", "tr", "th", "td",
		"strong", "em", "b", "i", "small",
	)
	p.AllowAttrs(structuralAttrs...).Globally()

	return &Builder{
		policy: p,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Build sanitizes raw HTML and renders both views, each truncated to
// budget characters. A budget of zero or less means no truncation.
func (b *Builder) Build(rawHTML string, budget int) Snippet {
	clean := strings.TrimSpace(b.policy.Sanitize(rawHTML))
	clean = collapseBlank(clean)

	md := ""
	if clean != "" {
		if out, err := b.md.ConvertString(clean); err == nil {
			md = strings.TrimSpace(out)
		}
	}

	return Snippet{
		HTML:     truncate(clean, budget),
		Markdown: truncate(md, budget),
	}
}

func truncate(s string, budget int) string {
	if budget <= 0 || len(s) <= budget {
		return s
	}
	return s[:budget]
}

// collapseBlank drops runs of blank lines left behind by stripped nodes.
func collapseBlank(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
