// Package strategy defines the locator strategy model: a tagged variant
// describing one concrete way to find a page element, plus the usage
// statistics the learning loop maintains.
//
// Strategies are owned by the knowledge base; everything else treats them
// as values. Structural identity (kind + params, ignoring statistics) is
// what deduplication and promotion key on.
package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind identifies how a strategy locates an element.
type Kind string

const (
	KindCSS         Kind = "css"         // params: selector
	KindXPath       Kind = "xpath"       // params: xpath
	KindRole        Kind = "role"        // params: role, name
	KindPlaceholder Kind = "placeholder" // params: text
	KindLabel       Kind = "label"       // params: text
	KindText        Kind = "text"        // params: text
	KindTestID      Kind = "testid"      // params: testid
)

// requiredParams lists the params each kind must carry, non-empty.
var requiredParams = map[Kind][]string{
	KindCSS:         {"selector"},
	KindXPath:       {"xpath"},
	KindRole:        {"name"},
	KindPlaceholder: {"text"},
	KindLabel:       {"text"},
	KindText:        {"text"},
	KindTestID:      {"testid"},
}

// Interaction is the capability a logical field expects from its element.
type Interaction string

const (
	InteractFill  Interaction = "fill"  // text inputs, date inputs
	InteractClick Interaction = "click" // buttons, links
	InteractRead  Interaction = "read"  // result containers, prices
)

// Strategy is one executable locator rule with its track record.
// A strategy with zero uses has SuccessCount = FailureCount = 0.
type Strategy struct {
	Kind         Kind              `json:"kind"`
	Params       map[string]string `json:"params"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
	LastUsedAt   *time.Time        `json:"last_used_at,omitempty"`
}

// CSS builds a css strategy.
func CSS(selector string) *Strategy {
	return &Strategy{Kind: KindCSS, Params: map[string]string{"selector": selector}}
}

// XPath builds an xpath strategy.
func XPath(expr string) *Strategy {
	return &Strategy{Kind: KindXPath, Params: map[string]string{"xpath": expr}}
}

// Role builds a role strategy. An empty role defaults to "button" during
// validation; the accessible name is what identifies the element.
func Role(role, name string) *Strategy {
	return &Strategy{Kind: KindRole, Params: map[string]string{"role": role, "name": name}}
}

// Placeholder builds a placeholder substring-match strategy.
func Placeholder(text string) *Strategy {
	return &Strategy{Kind: KindPlaceholder, Params: map[string]string{"text": text}}
}

// Label builds a label-text strategy.
func Label(text string) *Strategy {
	return &Strategy{Kind: KindLabel, Params: map[string]string{"text": text}}
}

// Text builds a visible-text strategy.
func Text(text string) *Strategy {
	return &Strategy{Kind: KindText, Params: map[string]string{"text": text}}
}

// TestID builds a test-id attribute strategy (data-testid / data-test).
func TestID(id string) *Strategy {
	return &Strategy{Kind: KindTestID, Params: map[string]string{"testid": id}}
}

// Validate checks that the kind is known and every required param is
// present and non-empty. Role strategies without an explicit role are
// normalised to role=button.
func (s *Strategy) Validate() error {
	required, ok := requiredParams[s.Kind]
	if !ok {
		return fmt.Errorf("strategy: unknown kind %q", s.Kind)
	}
	if s.Params == nil {
		return fmt.Errorf("strategy: %s: missing params", s.Kind)
	}
	for _, p := range required {
		if strings.TrimSpace(s.Params[p]) == "" {
			return fmt.Errorf("strategy: %s: missing param %q", s.Kind, p)
		}
	}
	if s.Kind == KindRole && strings.TrimSpace(s.Params["role"]) == "" {
		s.Params["role"] = "button"
	}
	return nil
}

// Fingerprint returns a stable hash of kind + params, ignoring statistics.
// Two strategies with the same fingerprint are structurally identical.
func (s *Strategy) Fingerprint() string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(s.Kind))
	for _, k := range keys {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(s.Params[k])
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:8])
}

// Equal reports structural equality (kind + params).
func (s *Strategy) Equal(other *Strategy) bool {
	if other == nil || s.Kind != other.Kind || len(s.Params) != len(other.Params) {
		return false
	}
	for k, v := range s.Params {
		if other.Params[k] != v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. The knowledge base hands out clones so
// callers can never mutate its owned instances.
func (s *Strategy) Clone() *Strategy {
	c := *s
	c.Params = make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		c.Params[k] = v
	}
	if s.LastUsedAt != nil {
		t := *s.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}

// String renders a compact human-readable form, e.g.
// css(selector=input[type='date']). Used in logs, diagnostics, and the
// failed-strategies section of repair prompts.
func (s *Strategy) String() string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+s.Params[k])
	}
	return fmt.Sprintf("%s(%s)", s.Kind, strings.Join(parts, ", "))
}

// Contains reports whether target is structurally present in list.
func Contains(list []*Strategy, target *Strategy) bool {
	for _, s := range list {
		if s.Equal(target) {
			return true
		}
	}
	return false
}
