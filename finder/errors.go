package finder

import (
	"fmt"
	"strings"

	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// ErrElementNotFound reports that every known strategy and every repair
// proposal was tried against the live page and none validated. Attempted
// lists everything that was tried, in order, for diagnostics.
type ErrElementNotFound struct {
	Provider  string
	Field     string
	Attempted []*strategy.Strategy
}

func (e *ErrElementNotFound) Error() string {
	tried := make([]string, len(e.Attempted))
	for i, s := range e.Attempted {
		tried[i] = s.String()
	}
	return fmt.Sprintf("element not found: %s/%s after %d strategies [%s]",
		e.Provider, e.Field, len(e.Attempted), strings.Join(tried, ", "))
}
