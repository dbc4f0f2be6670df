package repair

import (
	"context"
	"errors"
	"testing"

	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

func propose(t *testing.T, req *Request) *strategy.Strategy {
	t.Helper()
	s, err := NewHeuristic().Propose(context.Background(), req)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	return s
}

func TestPropose_DataTestAttribute(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Keywords:    []string{"pickup", "from"},
		Snippet:     `<div><input data-test="pickup-location" placeholder="From"></div>`,
	}
	s := propose(t, req)
	if s.Kind != strategy.KindCSS {
		t.Fatalf("expected css strategy, got %s", s.Kind)
	}
	if got := s.Params["selector"]; got != "input[data-test='pickup-location']" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestPropose_DataTestIDVariant(t *testing.T) {
	req := &Request{
		Field:       "dropoff_input",
		Interaction: strategy.InteractFill,
		Snippet:     `<input data-testid="dropoff_zip">`,
	}
	s := propose(t, req)
	if got := s.Params["selector"]; got != "input[data-testid='dropoff_zip']" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestPropose_AriaLabel(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Snippet:     `<div aria-label="Pickup location"><input type="search"></div>`,
	}
	s := propose(t, req)
	if got := s.Params["selector"]; got != "[aria-label='Pickup location']" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestPropose_PlaceholderKeyword(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Keywords:    []string{"from", "pickup"},
		Snippet:     `<input placeholder="From: City, State or ZIP">`,
	}
	s := propose(t, req)
	if got := s.Params["selector"]; got != "input[placeholder*='from' i]" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestPropose_NameAttribute(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Snippet:     `<input name="pickupZip" type="search">`,
	}
	s := propose(t, req)
	if got := s.Params["selector"]; got != "input[name*='pickup' i]" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestPropose_StructuralDate(t *testing.T) {
	req := &Request{
		Field:       "pickup_date",
		Interaction: strategy.InteractFill,
		Snippet:     `<form><input type="date"></form>`,
	}
	s := propose(t, req)
	if got := s.Params["selector"]; got != "input[type='date']" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestPropose_StructuralSubmit(t *testing.T) {
	req := &Request{
		Field:       "submit_button",
		Interaction: strategy.InteractClick,
		Snippet:     `<form><button type="submit" class="btn-primary">Get Rates</button></form>`,
	}
	s := propose(t, req)
	if got := s.Params["selector"]; got != "button[type='submit']" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestPropose_SkipsFailedStrategies(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Keywords:    []string{"from"},
		Snippet:     `<input data-test="pickup-location" placeholder="From">`,
		Failed:      []*strategy.Strategy{strategy.CSS("input[data-test='pickup-location']")},
	}
	s := propose(t, req)
	// First rule's proposal already failed; the placeholder rule is next.
	if got := s.Params["selector"]; got != "input[placeholder*='from' i]" {
		t.Fatalf("expected fallback to next rule, got %s", got)
	}
}

func TestPropose_NoMatch(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Snippet:     `<p>Static marketing copy with no form at all.</p>`,
	}
	_, err := NewHeuristic().Propose(context.Background(), req)
	if !errors.Is(err, ErrNoProposal) {
		t.Fatalf("expected ErrNoProposal, got %v", err)
	}
}

func TestPropose_Deterministic(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Keywords:    []string{"pickup"},
		Snippet: `<div>
			<input data-test="pickup-location">
			<input data-test="pickup-date">
		</div>`,
	}
	first := propose(t, req)
	for i := 0; i < 5; i++ {
		if again := propose(t, req); !again.Equal(first) {
			t.Fatalf("non-deterministic proposal: %s vs %s", again, first)
		}
	}
	if first.Params["selector"] != "input[data-test='pickup-location']" {
		t.Fatalf("document order must win: %s", first.Params["selector"])
	}
}

func TestPropose_IgnoresScriptContent(t *testing.T) {
	req := &Request{
		Field:       "pickup_input",
		Interaction: strategy.InteractFill,
		Snippet:     `<script>var x = "data-test pickup";</script><input name="pickup_zip">`,
	}
	s := propose(t, req)
	if got := s.Params["selector"]; got != "input[name*='pickup' i]" {
		t.Fatalf("unexpected selector: %s", got)
	}
}
