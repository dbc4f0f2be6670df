package repair

import (
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// Heuristic is the rule-based strategy synthesizer. Pure and
// deterministic: the same snippet and field always yield the same
// proposal. Rules are applied in a fixed order over the parsed snippet;
// the first rule producing a valid strategy not already in Failed wins.
type Heuristic struct{}

// NewHeuristic returns the rule-based generator.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Name() string { return "heuristic" }

// Propose applies the rule chain:
//  1. data-test / data-testid values related to the field
//  2. aria-label values related to the field
//  3. placeholder substrings matching the field's keywords
//  4. name / id attributes containing a field token
//  5. structural fallbacks (date inputs, submit buttons)
func (h *Heuristic) Propose(_ context.Context, req *Request) (*strategy.Strategy, error) {
	doc, err := html.Parse(strings.NewReader(req.Snippet))
	if err != nil {
		return nil, ErrNoProposal
	}

	terms := fieldTerms(req.Field, req.Keywords)
	elems := collectElements(doc)

	rules := []func() *strategy.Strategy{
		func() *strategy.Strategy { return testAttrRule(elems, terms) },
		func() *strategy.Strategy { return ariaLabelRule(elems, terms) },
		func() *strategy.Strategy { return placeholderRule(elems, req.Keywords) },
		func() *strategy.Strategy { return nameIDRule(elems, terms) },
		func() *strategy.Strategy { return structuralRule(elems, req.Interaction, terms) },
	}

	for _, rule := range rules {
		s := rule()
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			continue
		}
		if strategy.Contains(req.Failed, s) {
			continue
		}
		return s, nil
	}
	return nil, ErrNoProposal
}

// fieldTerms derives matchable tokens from the logical field name plus
// the configured keywords: "pickup_input" -> pickup, pickupinput, ...
func fieldTerms(field string, keywords []string) []string {
	var terms []string
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if len(t) >= 3 && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	norm := strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(field))
	for _, tok := range strings.Fields(norm) {
		switch tok {
		case "input", "element", "field":
			// Generic suffixes match everything; skip.
		default:
			add(tok)
		}
	}
	add(strings.ReplaceAll(norm, " ", ""))
	for _, kw := range keywords {
		add(kw)
	}
	return terms
}

// relates checks whether an attribute value textually relates to any term.
// Separators in the value are squashed so "pickup-location" matches
// "pickup".
func relates(value string, terms []string) bool {
	v := strings.ToLower(value)
	squashed := strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
	for _, t := range terms {
		if strings.Contains(v, t) || strings.Contains(squashed, strings.ReplaceAll(t, " ", "")) {
			return true
		}
	}
	return false
}

func collectElements(doc *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// escape makes an attribute value safe inside a single-quoted CSS string.
func escape(v string) string {
	return strings.ReplaceAll(v, "'", "\\'")
}

func testAttrRule(elems []*html.Node, terms []string) *strategy.Strategy {
	for _, n := range elems {
		for _, key := range []string{"data-test", "data-testid"} {
			v := attr(n, key)
			if v == "" || !relates(v, terms) {
				continue
			}
			sel := "[" + key + "='" + escape(v) + "']"
			if n.DataAtom == atom.Input || n.DataAtom == atom.Button || n.DataAtom == atom.Select {
				sel = n.Data + sel
			}
			return strategy.CSS(sel)
		}
	}
	return nil
}

func ariaLabelRule(elems []*html.Node, terms []string) *strategy.Strategy {
	for _, n := range elems {
		v := attr(n, "aria-label")
		if v != "" && relates(v, terms) {
			return strategy.CSS("[aria-label='" + escape(v) + "']")
		}
	}
	return nil
}

func placeholderRule(elems []*html.Node, keywords []string) *strategy.Strategy {
	for _, n := range elems {
		if n.DataAtom != atom.Input && n.DataAtom != atom.Textarea {
			continue
		}
		ph := strings.ToLower(attr(n, "placeholder"))
		if ph == "" {
			continue
		}
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if kw != "" && strings.Contains(ph, kw) {
				return strategy.CSS(n.Data + "[placeholder*='" + escape(kw) + "' i]")
			}
		}
	}
	return nil
}

func nameIDRule(elems []*html.Node, terms []string) *strategy.Strategy {
	for _, n := range elems {
		if n.DataAtom != atom.Input && n.DataAtom != atom.Select && n.DataAtom != atom.Textarea {
			continue
		}
		for _, key := range []string{"name", "id"} {
			v := strings.ToLower(attr(n, key))
			if v == "" {
				continue
			}
			for _, t := range terms {
				if strings.Contains(v, t) {
					return strategy.CSS(n.Data + "[" + key + "*='" + escape(t) + "' i]")
				}
			}
		}
	}
	return nil
}

func structuralRule(elems []*html.Node, kind strategy.Interaction, terms []string) *strategy.Strategy {
	wantsDate := false
	for _, t := range terms {
		if strings.Contains(t, "date") {
			wantsDate = true
			break
		}
	}

	for _, n := range elems {
		switch kind {
		case strategy.InteractFill:
			if n.DataAtom != atom.Input {
				continue
			}
			typ := strings.ToLower(attr(n, "type"))
			if wantsDate && typ == "date" {
				return strategy.CSS("input[type='date']")
			}
			if !wantsDate && (typ == "" || typ == "text") {
				return strategy.CSS("input[type='text']")
			}
		case strategy.InteractClick:
			if n.DataAtom == atom.Button && strings.ToLower(attr(n, "type")) == "submit" {
				return strategy.CSS("button[type='submit']")
			}
		}
	}
	return nil
}
