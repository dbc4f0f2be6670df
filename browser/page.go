package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"

	"github.com/saudraja/ollama-ai-scrapper/finder"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// Page adapts one Rod page to the finder's capability surface. All
// operations against one Page must be issued sequentially.
type Page struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewPage wraps an existing Rod page, for callers that manage tabs
// themselves.
func NewPage(p *rod.Page, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{page: p, logger: logger}
}

// Rod returns the underlying Rod page.
func (p *Page) Rod() *rod.Page { return p.page }

// Close closes the tab.
func (p *Page) Close() error {
	if p.page != nil {
		return p.page.Close()
	}
	return nil
}

// Locate finds the first element matching the strategy. A strategy that
// matches nothing yields (nil, nil); errors mean the driver failed.
func (p *Page) Locate(ctx context.Context, s *strategy.Strategy) (finder.Element, error) {
	els, err := p.locate(ctx, s)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// LocateAll finds every element matching the strategy, in document order.
// Result-card parsing is the main consumer.
func (p *Page) LocateAll(ctx context.Context, s *strategy.Strategy) ([]finder.Element, error) {
	return p.locate(ctx, s)
}

func (p *Page) locate(ctx context.Context, s *strategy.Strategy) ([]finder.Element, error) {
	page := p.page.Context(ctx)

	var (
		els rod.Elements
		err error
	)
	switch s.Kind {
	case strategy.KindCSS:
		els, err = page.Elements(s.Params["selector"])
	case strategy.KindXPath:
		els, err = page.ElementsX(s.Params["xpath"])
	case strategy.KindPlaceholder:
		els, err = page.Elements(fmt.Sprintf(`[placeholder*=%q i]`, s.Params["text"]))
	case strategy.KindTestID:
		id := s.Params["testid"]
		els, err = page.Elements(fmt.Sprintf(`[data-testid=%q], [data-test=%q]`, id, id))
	case strategy.KindLabel:
		el, err := p.locateByLabel(page, s.Params["text"])
		if err != nil || el == nil {
			return nil, err
		}
		return []finder.Element{el}, nil
	case strategy.KindRole:
		els, err = page.ElementsX(roleXPath(s.Params["role"], s.Params["name"]))
	case strategy.KindText:
		els, err = page.ElementsX(fmt.Sprintf(
			`//*[contains(normalize-space(text()), %s)]`, xpathString(s.Params["text"])))
	default:
		return nil, fmt.Errorf("browser: unknown strategy kind %q", s.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: locate %s: %w", s.Kind, err)
	}
	out := make([]finder.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out, nil
}

// locateByLabel resolves a label's control, through its for attribute when
// present, otherwise the first form control nested under it.
func (p *Page) locateByLabel(page *rod.Page, text string) (finder.Element, error) {
	labels, err := page.ElementsX(fmt.Sprintf(
		`//label[contains(normalize-space(.), %s)]`, xpathString(text)))
	if err != nil {
		return nil, fmt.Errorf("browser: locate label: %w", err)
	}
	if len(labels) == 0 {
		return nil, nil
	}
	label := labels.First()

	if forAttr, err := label.Attribute("for"); err == nil && forAttr != nil && *forAttr != "" {
		els, err := page.Elements("#" + *forAttr)
		if err != nil {
			return nil, fmt.Errorf("browser: resolve label for: %w", err)
		}
		if len(els) > 0 {
			return &element{el: els.First()}, nil
		}
	}

	nested, err := label.Elements("input, select, textarea")
	if err != nil || len(nested) == 0 {
		return nil, nil
	}
	return &element{el: nested.First()}, nil
}

// SnapshotDOM serialises the full document as outer HTML.
func (p *Page) SnapshotDOM(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: snapshot DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// roleXPath matches either an explicit role attribute or the native
// element the role maps to, with the accessible name as visible text or
// aria-label.
func roleXPath(role, name string) string {
	n := xpathString(name)
	nameCond := fmt.Sprintf(`(contains(normalize-space(.), %s) or contains(@aria-label, %s))`, n, n)
	native := ""
	switch role {
	case "button":
		native = fmt.Sprintf(` | //button[%s] | //input[(@type='submit' or @type='button') and contains(@value, %s)]`, nameCond, n)
	case "link":
		native = fmt.Sprintf(` | //a[%s]`, nameCond)
	case "textbox":
		native = fmt.Sprintf(` | //input[contains(@aria-label, %s)] | //textarea[contains(@aria-label, %s)]`, n, n)
	}
	return fmt.Sprintf(`//*[@role=%s and %s]%s`, xpathString(role), nameCond, native)
}

// xpathString quotes a literal for embedding in an XPath expression.
func xpathString(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = "'" + part + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
