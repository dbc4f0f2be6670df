// Package kb is the selector knowledge base: per (provider, field) ordered
// lists of locator strategies, persisted to a JSON store after every
// mutation.
//
// The KB is the sole owner of strategy instances. Lookup hands out clones;
// all mutations go through RecordOutcome / InsertStrategy so ordering,
// statistics, and the on-disk store stay consistent. Order changes only via
// promotion (success moves a strategy to the front) or eviction (failure
// streaks, per-key cap).
package kb

import (
	"log/slog"
	"sync"
	"time"

	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

const (
	// DefaultMaxPerKey caps the strategy list length per (provider, field).
	DefaultMaxPerKey = 12
	// DefaultEvictStreak is the consecutive-failure count that evicts a
	// strategy, provided the list keeps at least one entry.
	DefaultEvictStreak = 8
)

// KB holds strategies for all (provider, field) keys.
// All mutations hold mu and rewrite the store file before releasing it,
// so concurrent writers are fully serialized and a flush always reflects
// a completed mutation.
type KB struct {
	path        string
	logger      *slog.Logger
	now         func() time.Time
	maxPerKey   int
	evictStreak int

	mu      sync.Mutex
	entries map[string][]*strategy.Strategy
	// streaks tracks consecutive failures per key/fingerprint. In-memory
	// only: persisted counters stay cumulative so the file schema does not
	// change.
	streaks map[string]map[string]int
}

// Option configures a KB.
type Option func(*KB)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(k *KB) { k.logger = l } }

// WithClock sets a custom clock (for testing).
func WithClock(fn func() time.Time) Option { return func(k *KB) { k.now = fn } }

// WithMaxPerKey overrides the per-key list cap.
func WithMaxPerKey(n int) Option { return func(k *KB) { k.maxPerKey = n } }

// WithEvictStreak overrides the consecutive-failure eviction threshold.
func WithEvictStreak(n int) Option { return func(k *KB) { k.evictStreak = n } }

// New creates a KB backed by the JSON store at path. Call Load before use.
func New(path string, opts ...Option) *KB {
	k := &KB{
		path:        path,
		logger:      slog.Default(),
		now:         time.Now,
		maxPerKey:   DefaultMaxPerKey,
		evictStreak: DefaultEvictStreak,
		entries:     make(map[string][]*strategy.Strategy),
		streaks:     make(map[string]map[string]int),
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

func key(provider, field string) string { return provider + "/" + field }

// Lookup returns the ordered strategy list for (provider, field), most
// preferred first. Unknown keys yield an empty list, never an error.
// Returned strategies are clones; mutating them does not touch the KB.
func (k *KB) Lookup(provider, field string) []*strategy.Strategy {
	k.mu.Lock()
	defer k.mu.Unlock()

	list := k.entries[key(provider, field)]
	out := make([]*strategy.Strategy, len(list))
	for i, s := range list {
		out[i] = s.Clone()
	}
	return out
}

// Keys returns all known "provider/field" keys.
func (k *KB) Keys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make([]string, 0, len(k.entries))
	for kk := range k.entries {
		out = append(out, kk)
	}
	return out
}

// RecordOutcome records a success or failure for the strategy structurally
// matching s under (provider, field) and flushes the store.
//
// On success the strategy's counters and last-used time are updated and it
// is promoted to the front (stable order for the rest). On failure the
// failure counter is incremented; a strategy whose consecutive-failure
// streak reaches the eviction threshold is dropped, provided the list
// keeps at least one entry. A strategy no longer present (evicted by a
// concurrent writer) is a silent no-op: last-writer-wins on counters is
// acceptable, list corruption is not.
func (k *KB) RecordOutcome(provider, field string, s *strategy.Strategy, success bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	kk := key(provider, field)
	list := k.entries[kk]
	idx := -1
	for i, cur := range list {
		if cur.Equal(s) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	cur := list[idx]
	t := k.now()
	cur.LastUsedAt = &t
	fp := cur.Fingerprint()

	if success {
		cur.SuccessCount++
		k.setStreak(kk, fp, 0)
		if idx != 0 {
			copy(list[1:idx+1], list[:idx])
			list[0] = cur
		}
	} else {
		cur.FailureCount++
		streak := k.bumpStreak(kk, fp)
		if streak >= k.evictStreak && len(list) > 1 {
			k.entries[kk] = append(list[:idx], list[idx+1:]...)
			k.clearStreak(kk, fp)
			k.logger.Info("kb: evicted strategy on failure streak",
				"key", kk, "strategy", cur.String(), "streak", streak)
		}
	}

	return k.persistLocked()
}

// InsertStrategy inserts s at the given priority (0 = most preferred),
// clamped to the valid range, and flushes the store. A structurally
// identical strategy already present is promoted to the requested priority
// instead of being duplicated; its counters are kept. When the list
// exceeds the per-key cap, the entry with the worst failure streak
// (tail-most on ties, never the one just inserted) is evicted.
func (k *KB) InsertStrategy(provider, field string, s *strategy.Strategy, priority int) error {
	ins := s.Clone()
	if err := ins.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	kk := key(provider, field)
	list := k.entries[kk]

	// Dedup by structural equality: promote instead of duplicating.
	for i, cur := range list {
		if cur.Equal(ins) {
			k.moveLocked(kk, i, clamp(priority, len(list)-1))
			return k.persistLocked()
		}
	}

	pos := clamp(priority, len(list))
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = ins
	k.entries[kk] = list

	if len(list) > k.maxPerKey {
		k.evictWorstLocked(kk, ins)
	}

	return k.persistLocked()
}

// Persist flushes the current state to the store file.
func (k *KB) Persist() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.persistLocked()
}

// Stats summarises the KB for inspection surfaces.
type Stats struct {
	Keys       int `json:"keys"`
	Strategies int `json:"strategies"`
	Successes  int `json:"successes"`
	Failures   int `json:"failures"`
}

// Stats returns aggregate counts across all keys.
func (k *KB) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()

	var st Stats
	st.Keys = len(k.entries)
	for _, list := range k.entries {
		st.Strategies += len(list)
		for _, s := range list {
			st.Successes += s.SuccessCount
			st.Failures += s.FailureCount
		}
	}
	return st
}

func (k *KB) moveLocked(kk string, from, to int) {
	list := k.entries[kk]
	s := list[from]
	if from == to {
		return
	}
	if from < to {
		copy(list[from:to], list[from+1:to+1])
	} else {
		copy(list[to+1:from+1], list[to:from])
	}
	list[to] = s
}

// evictWorstLocked drops the entry with the longest failure streak,
// tail-most on ties, skipping keep.
func (k *KB) evictWorstLocked(kk string, keep *strategy.Strategy) {
	list := k.entries[kk]
	worst, worstStreak := -1, -1
	for i, s := range list {
		if s == keep {
			continue
		}
		streak := k.streaks[kk][s.Fingerprint()]
		if streak >= worstStreak {
			worst, worstStreak = i, streak
		}
	}
	if worst < 0 {
		return
	}
	victim := list[worst]
	k.entries[kk] = append(list[:worst], list[worst+1:]...)
	k.clearStreak(kk, victim.Fingerprint())
	k.logger.Info("kb: evicted strategy at cap",
		"key", kk, "strategy", victim.String())
}

func (k *KB) setStreak(kk, fp string, v int) {
	m := k.streaks[kk]
	if m == nil {
		m = make(map[string]int)
		k.streaks[kk] = m
	}
	m[fp] = v
}

func (k *KB) bumpStreak(kk, fp string) int {
	m := k.streaks[kk]
	if m == nil {
		m = make(map[string]int)
		k.streaks[kk] = m
	}
	m[fp]++
	return m[fp]
}

func (k *KB) clearStreak(kk, fp string) {
	if m := k.streaks[kk]; m != nil {
		delete(m, fp)
	}
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
