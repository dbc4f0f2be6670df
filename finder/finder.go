// Package finder resolves logical field names to live page elements.
//
// The Finder is the only component that touches the live page and the only
// writer of the knowledge base. Resolution walks the known strategies in
// preference order, and on exhaustion synthesizes new ones, heuristically
// first and through the AI generator second, validating every candidate
// against the page before it is trusted or remembered.
package finder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/saudraja/ollama-ai-scrapper/audit"
	"github.com/saudraja/ollama-ai-scrapper/kb"
	"github.com/saudraja/ollama-ai-scrapper/repair"
	"github.com/saudraja/ollama-ai-scrapper/snippet"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// Element is a located page element handle.
type Element interface {
	// Visible reports whether the element is attached and rendered.
	Visible(ctx context.Context) (bool, error)

	// Interactable reports whether the element supports the interaction
	// kind (a fillable input, a clickable control, readable text).
	Interactable(ctx context.Context, kind strategy.Interaction) (bool, error)

	Fill(ctx context.Context, value string) error
	Click(ctx context.Context) error
	Text(ctx context.Context) (string, error)
}

// PageContext is the capability surface the Finder needs from a browser
// tab. Locate returns (nil, nil) when the strategy matches nothing; an
// error means the driver itself failed. Operations against one
// PageContext must not be issued concurrently.
type PageContext interface {
	Locate(ctx context.Context, s *strategy.Strategy) (Element, error)
	SnapshotDOM(ctx context.Context) (string, error)
}

// AIGenerator is a repair generator with a reachability probe.
type AIGenerator interface {
	repair.Generator
	Available(ctx context.Context) bool
}

// Resolution is a successful resolve outcome.
type Resolution struct {
	Element  Element
	Strategy *strategy.Strategy

	// Source is where the winning strategy came from: audit.SourceKnown,
	// audit.SourceHeuristic or audit.SourceAI.
	Source string
}

// Config configures a Finder.
type Config struct {
	KB        *kb.KB
	Heuristic repair.Generator
	AI        AIGenerator // nil disables AI repair

	// Fields maps logical field names to their specs. Unknown fields
	// default to fillable with no keywords.
	Fields map[string]FieldSpec

	// SnippetBudget caps the DOM snippet captured on exhaustion.
	// Default: 2000.
	SnippetBudget int

	// AttemptTimeout bounds one strategy attempt against the page.
	// Default: 5s.
	AttemptTimeout time.Duration

	Audit  *audit.SQLiteLogger // nil disables the trail
	Logger *slog.Logger
}

// Finder orchestrates resolution and the learning loop.
type Finder struct {
	cfg      Config
	snippets *snippet.Builder
}

// New creates a Finder. cfg.KB is required.
func New(cfg Config) *Finder {
	if cfg.Heuristic == nil {
		cfg.Heuristic = repair.NewHeuristic()
	}
	if cfg.SnippetBudget <= 0 {
		cfg.SnippetBudget = 2000
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Finder{cfg: cfg, snippets: snippet.NewBuilder()}
}

// Resolve returns a live, validated element for (provider, field), trying
// known strategies first and synthesizing new ones on exhaustion. The
// knowledge base is mutated only when resolution succeeds; a fully failed
// attempt leaves it untouched and returns ErrElementNotFound.
func (f *Finder) Resolve(ctx context.Context, provider, field string, page PageContext) (*Resolution, error) {
	start := time.Now()
	log := f.cfg.Logger.With("provider", provider, "field", field)
	spec := specFor(f.cfg.Fields, field)

	known := f.cfg.KB.Lookup(provider, field)
	attempted := make([]*strategy.Strategy, 0, len(known)+2)

	for i, s := range known {
		elem, ok := f.try(ctx, page, s, spec.Interaction)
		if !ok {
			attempted = append(attempted, s)
			continue
		}
		log.Debug("finder: known strategy matched", "index", i, "strategy", s.String())
		f.commitKnown(provider, field, s, attempted, log)
		f.trail(provider, field, audit.OutcomeResolved, audit.SourceKnown, s, start, "")
		return &Resolution{Element: elem, Strategy: s, Source: audit.SourceKnown}, nil
	}

	log.Info("finder: known strategies exhausted, entering repair", "tried", len(attempted))

	req, err := f.repairContext(ctx, page, provider, field, spec, attempted)
	if err != nil {
		log.Warn("finder: DOM snapshot failed, repair skipped", "error", err)
		nf := &ErrElementNotFound{Provider: provider, Field: field, Attempted: attempted}
		f.trail(provider, field, audit.OutcomeNotFound, "", nil, start, nf.Error())
		return nil, nf
	}

	generators := []struct {
		gen    repair.Generator
		source string
	}{
		{f.cfg.Heuristic, audit.SourceHeuristic},
	}
	if f.cfg.AI != nil && spec.aiEligible() && f.cfg.AI.Available(ctx) {
		generators = append(generators, struct {
			gen    repair.Generator
			source string
		}{f.cfg.AI, audit.SourceAI})
	}

	for _, g := range generators {
		req.Failed = attempted
		proposal, err := g.gen.Propose(ctx, req)
		if err != nil {
			if !errors.Is(err, repair.ErrNoProposal) {
				log.Warn("finder: repair generator failed", "generator", g.gen.Name(), "error", err)
			}
			continue
		}

		elem, ok := f.try(ctx, page, proposal, spec.Interaction)
		if !ok {
			// Never previously known, so no failure is recorded against
			// the knowledge base. It still joins the failed list so the
			// next generator does not re-propose it.
			attempted = append(attempted, proposal)
			continue
		}

		log.Info("finder: repair accepted", "generator", g.gen.Name(), "strategy", proposal.String())
		f.commitRepair(provider, field, proposal, attempted, known, log)
		f.trail(provider, field, audit.OutcomeResolved, g.source, proposal, start, "")
		return &Resolution{Element: elem, Strategy: proposal, Source: g.source}, nil
	}

	nf := &ErrElementNotFound{Provider: provider, Field: field, Attempted: attempted}
	log.Warn("finder: resolution failed", "attempted", len(attempted))
	f.trail(provider, field, audit.OutcomeNotFound, "", nil, start, nf.Error())
	return nil, nf
}

// try locates and validates one strategy within the attempt timeout.
func (f *Finder) try(ctx context.Context, page PageContext, s *strategy.Strategy, kind strategy.Interaction) (Element, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.AttemptTimeout)
	defer cancel()

	elem, err := page.Locate(ctx, s)
	if err != nil || elem == nil {
		return nil, false
	}
	if visible, err := elem.Visible(ctx); err != nil || !visible {
		return nil, false
	}
	if ok, err := elem.Interactable(ctx, kind); err != nil || !ok {
		return nil, false
	}
	return elem, true
}

// commitKnown records the outcome of a successful known-strategy
// resolution: failures for the strategies tried before the winner, then
// the winner's success, then one flush.
func (f *Finder) commitKnown(provider, field string, winner *strategy.Strategy, failed []*strategy.Strategy, log *slog.Logger) {
	for _, s := range failed {
		if err := f.cfg.KB.RecordOutcome(provider, field, s, false); err != nil {
			log.Warn("finder: record failure outcome", "error", err)
		}
	}
	if err := f.cfg.KB.RecordOutcome(provider, field, winner, true); err != nil {
		log.Warn("finder: record success outcome", "error", err)
	}
	if err := f.cfg.KB.Persist(); err != nil {
		log.Warn("finder: persist knowledge base", "error", err)
	}
}

// commitRepair records a validated repair: failures for the known
// strategies that were tried, the new strategy at top priority, then one
// flush. Failed repair proposals are not recorded, they were never known.
func (f *Finder) commitRepair(provider, field string, winner *strategy.Strategy, attempted, known []*strategy.Strategy, log *slog.Logger) {
	for _, s := range attempted {
		if strategy.Contains(known, s) {
			if err := f.cfg.KB.RecordOutcome(provider, field, s, false); err != nil {
				log.Warn("finder: record failure outcome", "error", err)
			}
		}
	}
	if err := f.cfg.KB.InsertStrategy(provider, field, winner, 0); err != nil {
		log.Warn("finder: insert repaired strategy", "error", err)
	}
	if err := f.cfg.KB.RecordOutcome(provider, field, winner, true); err != nil {
		log.Warn("finder: record repair success", "error", err)
	}
	if err := f.cfg.KB.Persist(); err != nil {
		log.Warn("finder: persist knowledge base", "error", err)
	}
}

// repairContext snapshots the page and builds the bounded request handed
// to the repair generators.
func (f *Finder) repairContext(ctx context.Context, page PageContext, provider, field string, spec FieldSpec, failed []*strategy.Strategy) (*repair.Request, error) {
	raw, err := page.SnapshotDOM(ctx)
	if err != nil {
		return nil, err
	}
	sn := f.snippets.Build(raw, f.cfg.SnippetBudget)
	return &repair.Request{
		Provider:    provider,
		Field:       field,
		Interaction: spec.Interaction,
		Keywords:    spec.Keywords,
		Snippet:     sn.HTML,
		Markdown:    sn.Markdown,
		Failed:      failed,
	}, nil
}

func (f *Finder) trail(provider, field, outcome, source string, s *strategy.Strategy, start time.Time, errText string) {
	if f.cfg.Audit == nil {
		return
	}
	e := &audit.Entry{
		Provider:   provider,
		Field:      field,
		Outcome:    outcome,
		Source:     source,
		DurationMs: time.Since(start).Milliseconds(),
		Error:      errText,
	}
	if s != nil {
		e.Strategy = s.String()
	}
	f.cfg.Audit.LogAsync(e)
}
