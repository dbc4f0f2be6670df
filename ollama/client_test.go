package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saudraja/ollama-ai-scrapper/repair"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

func generateServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "gpt-oss:latest"}},
			})
		case "/api/generate":
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode generate request: %v", err)
			}
			if req.Stream {
				t.Error("expected stream=false")
			}
			json.NewEncoder(w).Encode(generateResponse{Response: response})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testRequest() *repair.Request {
	return &repair.Request{
		Provider:    "penske",
		Field:       "pickup_location",
		Interaction: strategy.InteractFill,
		Keywords:    []string{"pickup", "location"},
		Snippet:     `<form><input data-test="pickup-location" placeholder="From"></form>`,
	}
}

func TestAvailable(t *testing.T) {
	srv := generateServer(t, "")
	c := New(Config{Endpoint: srv.URL, Model: "gpt-oss"})
	if !c.Available(context.Background()) {
		t.Fatal("expected endpoint with matching model to be available")
	}
}

func TestAvailableModelMissing(t *testing.T) {
	srv := generateServer(t, "")
	c := New(Config{Endpoint: srv.URL, Model: "llama3"})
	if c.Available(context.Background()) {
		t.Fatal("expected unavailable when model is not served")
	}
}

func TestAvailableDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Config{Endpoint: srv.URL, ProbeTimeout: 200 * time.Millisecond})
	if c.Available(context.Background()) {
		t.Fatal("expected unavailable when endpoint is down")
	}
}

func TestProposeBareJSON(t *testing.T) {
	srv := generateServer(t, `{"strategy": "css", "params": {"selector": "input[data-test='pickup-location']"}}`)
	c := New(Config{Endpoint: srv.URL})

	s, err := c.Propose(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if s.Kind != strategy.KindCSS {
		t.Fatalf("kind = %q, want css", s.Kind)
	}
	if got := s.Params["selector"]; got != "input[data-test='pickup-location']" {
		t.Fatalf("selector = %q", got)
	}
}

func TestProposeJSONInProse(t *testing.T) {
	srv := generateServer(t, "Sure! Based on the HTML, use:\n"+
		`{"strategy": "placeholder", "params": {"text": "From"}}`+"\nThat should work.")
	c := New(Config{Endpoint: srv.URL})

	s, err := c.Propose(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if s.Kind != strategy.KindPlaceholder || s.Params["text"] != "From" {
		t.Fatalf("got %s", s.String())
	}
}

func TestProposeFencedJSON(t *testing.T) {
	srv := generateServer(t, "```json\n{\"kind\": \"xpath\", \"params\": {\"xpath\": \"//input[@name='pickup']\"}}\n```")
	c := New(Config{Endpoint: srv.URL})

	s, err := c.Propose(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if s.Kind != strategy.KindXPath {
		t.Fatalf("kind = %q, want xpath", s.Kind)
	}
}

func TestProposeInvalidOutput(t *testing.T) {
	for name, response := range map[string]string{
		"prose only":     "I cannot find that element.",
		"unknown kind":   `{"strategy": "jquery", "params": {"selector": "x"}}`,
		"missing params": `{"strategy": "css", "params": {}}`,
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			srv := generateServer(t, response)
			c := New(Config{Endpoint: srv.URL})

			_, err := c.Propose(context.Background(), testRequest())
			var inv *ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Fatalf("err = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestProposeRejectsRepeatedFailure(t *testing.T) {
	srv := generateServer(t, `{"strategy": "css", "params": {"selector": "#old"}}`)
	c := New(Config{Endpoint: srv.URL})

	req := testRequest()
	req.Failed = []*strategy.Strategy{strategy.CSS("#old")}

	_, err := c.Propose(context.Background(), req)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want ErrInvalidResponse for re-proposed strategy", err)
	}
}

func TestProposeServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Config{Endpoint: srv.URL, Timeout: 200 * time.Millisecond})

	_, err := c.Propose(context.Background(), testRequest())
	var unavailable *ErrServiceUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestProposeBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{Endpoint: srv.URL, BreakerThreshold: 2, BreakerReset: time.Hour})
	for i := 0; i < 2; i++ {
		if _, err := c.Propose(context.Background(), testRequest()); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := c.Propose(context.Background(), testRequest())
	var unavailable *ErrServiceUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable with open circuit", err)
	}
	if unavailable.Cause == nil {
		t.Fatal("expected a cause on the open-circuit error")
	}
}

func TestPromptContainsContext(t *testing.T) {
	req := testRequest()
	req.Failed = []*strategy.Strategy{strategy.CSS("#gone")}

	prompt := buildPrompt(req, 2000)
	for _, want := range []string{"pickup_location", "penske", "#gone", "data-test", "css, xpath, role"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestPromptTruncatesSnippet(t *testing.T) {
	req := testRequest()
	for len(req.Snippet) < 5000 {
		req.Snippet += "<div class='filler'>x</div>"
	}
	prompt := buildPrompt(req, 500)
	if len(prompt) > 1200 {
		t.Fatalf("prompt length %d, snippet budget not applied", len(prompt))
	}
}
