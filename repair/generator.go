// Package repair synthesizes candidate locator strategies when every
// known strategy for a field has failed. Generators only propose; the
// finder validates proposals against the live page and owns the decision
// to learn them.
package repair

import (
	"context"
	"errors"

	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// ErrNoProposal is returned when a generator has nothing to offer for the
// request. It is part of normal operation, never a hard failure.
var ErrNoProposal = errors.New("repair: no proposal")

// Request carries everything a generator may consult. The snippet is
// bounded by the caller; Failed accumulates every strategy attempted in
// this repair attempt so generators do not re-propose them.
type Request struct {
	Provider    string
	Field       string
	Interaction strategy.Interaction
	Keywords    []string
	Snippet     string // sanitized, size-capped HTML
	Markdown    string // compact text rendering of the snippet, may be empty
	Failed      []*strategy.Strategy
}

// Generator proposes one strategy for a request, or fails.
// Implementations must not touch the live page or the knowledge base.
type Generator interface {
	Name() string
	Propose(ctx context.Context, req *Request) (*strategy.Strategy, error)
}
