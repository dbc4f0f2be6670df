package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saudraja/ollama-ai-scrapper/repair"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// maxFailedShown caps how many failed strategies are listed in the prompt.
const maxFailedShown = 3

// buildPrompt assembles the generation prompt: role framing, the target
// field, the strategies already known to fail, a truncated DOM snippet,
// and a strict output-format instruction.
func buildPrompt(req *repair.Request, snippetBudget int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a web automation expert. The %q field on the %q website could not be located.\n",
		req.Field, req.Provider)
	fmt.Fprintf(&b, "The field is used to %s.\n", describeInteraction(req.Interaction))
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Related keywords: %s.\n", strings.Join(req.Keywords, ", "))
	}

	if len(req.Failed) > 0 {
		b.WriteString("\nThese strategies were tried and failed, do not repeat them:\n")
		failed := req.Failed
		if len(failed) > maxFailedShown {
			failed = failed[:maxFailedShown]
		}
		for _, f := range failed {
			fmt.Fprintf(&b, "- %s\n", f.String())
		}
	}

	snippet := req.Snippet
	if req.Markdown != "" && len(req.Markdown) < len(snippet) {
		snippet = req.Markdown
	}
	if len(snippet) > snippetBudget {
		snippet = snippet[:snippetBudget]
	}
	if snippet != "" {
		b.WriteString("\nCurrent page HTML:\n")
		b.WriteString(snippet)
		b.WriteString("\n")
	}

	b.WriteString("\nAnswer with exactly one JSON object and nothing else, in this form:\n")
	b.WriteString(`{"strategy": "css", "params": {"selector": "input[name='example']"}}` + "\n")
	b.WriteString(`Allowed strategy values: css, xpath, role, placeholder, label, text, testid.` + "\n")
	b.WriteString(`Required params per strategy: css needs "selector", xpath needs "xpath", role needs "role" and "name", testid needs "testid", placeholder/label/text need "text".` + "\n")
	return b.String()
}

func describeInteraction(it strategy.Interaction) string {
	switch it {
	case strategy.InteractClick:
		return "click a control"
	case strategy.InteractRead:
		return "read displayed text"
	default:
		return "fill in a value"
	}
}

// proposal is the shape the model is asked to answer with. Older model
// revisions answered with "kind" instead of "strategy", both are accepted.
type proposal struct {
	Strategy string            `json:"strategy"`
	Kind     string            `json:"kind"`
	Params   map[string]string `json:"params"`
}

// parseStrategy extracts and validates a strategy from raw model output.
// The output may be a bare JSON object, an object embedded in prose, or an
// object inside a fenced code block.
func parseStrategy(raw string) (*strategy.Strategy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ErrInvalidResponse{Reason: "empty response"}
	}

	for _, candidate := range jsonCandidates(raw) {
		var p proposal
		if err := json.Unmarshal([]byte(candidate), &p); err != nil {
			continue
		}
		kind := p.Strategy
		if kind == "" {
			kind = p.Kind
		}
		if kind == "" {
			continue
		}
		s := &strategy.Strategy{Kind: strategy.Kind(kind), Params: p.Params}
		if err := s.Validate(); err != nil {
			return nil, &ErrInvalidResponse{Reason: err.Error()}
		}
		return s, nil
	}
	return nil, &ErrInvalidResponse{Reason: "no JSON object found in model output"}
}

// jsonCandidates yields substrings of raw worth trying as JSON, in order:
// the whole string, the content of any fenced block, then every balanced
// top-level {...} group.
func jsonCandidates(raw string) []string {
	out := []string{raw}

	if i := strings.Index(raw, "```"); i >= 0 {
		rest := raw[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			out = append(out, strings.TrimSpace(rest[:j]))
		}
	}

	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, raw[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}
