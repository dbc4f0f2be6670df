package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/saudraja/ollama-ai-scrapper/finder"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// Session is one provider page under automation. browser.Page satisfies
// it; tests substitute fakes.
type Session interface {
	finder.PageContext
	LocateAll(ctx context.Context, s *strategy.Strategy) ([]finder.Element, error)
	Close() error
}

// PageOpener opens a session on a provider's entry page.
type PageOpener func(ctx context.Context, url string) (Session, error)

// maxResultCards bounds how many cards one scrape parses.
const maxResultCards = 10

// Adapter drives a provider's quote form end to end with self-healing
// field resolution.
type Adapter struct {
	finder *finder.Finder
	open   PageOpener
	urls   map[string]string
	demo   bool
	logger *slog.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(f *finder.Finder, open PageOpener, cfg *Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		finder: f,
		open:   open,
		urls:   cfg.ProviderURLs,
		demo:   cfg.DemoFallback,
		logger: logger,
	}
}

// ScrapeQuotes fills the provider's form, submits it, and parses the
// result cards. When nothing parses and the demo fallback is enabled,
// deterministic demo quotes are returned instead of an error.
func (a *Adapter) ScrapeQuotes(ctx context.Context, provider string, req *SearchRequest) ([]Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("scraper: invalid request: %w", err)
	}
	url, ok := a.urls[provider]
	if !ok {
		return nil, fmt.Errorf("scraper: unknown provider %q", provider)
	}
	log := a.logger.With("provider", provider)

	session, err := a.open(ctx, url)
	if err != nil {
		if a.demo {
			log.Warn("scraper: page open failed, serving demo quotes", "error", err)
			return DemoQuotes(req), nil
		}
		return nil, fmt.Errorf("scraper: open %s: %w", url, err)
	}
	defer session.Close()

	quotes, err := a.scrape(ctx, provider, session, req)
	if err != nil {
		if a.demo {
			log.Warn("scraper: live scrape failed, serving demo quotes", "error", err)
			return DemoQuotes(req), nil
		}
		return nil, err
	}
	return quotes, nil
}

func (a *Adapter) scrape(ctx context.Context, provider string, session Session, req *SearchRequest) ([]Quote, error) {
	fills := []struct {
		field string
		value string
	}{
		{"pickup_input", req.PickupZip},
		{"dropoff_input", req.DropoffZip},
		{"pickup_date", req.PickupDate.Format("01/02/2006")},
		{"dropoff_date", req.DropoffDate.Format("01/02/2006")},
	}
	for _, f := range fills {
		res, err := a.finder.Resolve(ctx, provider, f.field, session)
		if err != nil {
			return nil, fmt.Errorf("scraper: resolve %s: %w", f.field, err)
		}
		if err := res.Element.Fill(ctx, f.value); err != nil {
			return nil, fmt.Errorf("scraper: fill %s: %w", f.field, err)
		}
	}

	submit, err := a.finder.Resolve(ctx, provider, "submit_button", session)
	if err != nil {
		return nil, fmt.Errorf("scraper: resolve submit_button: %w", err)
	}
	if err := submit.Element.Click(ctx); err != nil {
		return nil, fmt.Errorf("scraper: submit: %w", err)
	}

	return a.parseResults(ctx, provider, session, req)
}

func (a *Adapter) parseResults(ctx context.Context, provider string, session Session, req *SearchRequest) ([]Quote, error) {
	res, err := a.finder.Resolve(ctx, provider, "result_cards", session)
	if err != nil {
		return nil, fmt.Errorf("scraper: resolve result_cards: %w", err)
	}

	cards, err := session.LocateAll(ctx, res.Strategy)
	if err != nil {
		return nil, fmt.Errorf("scraper: collect result cards: %w", err)
	}
	if len(cards) > maxResultCards {
		cards = cards[:maxResultCards]
	}

	var quotes []Quote
	for _, card := range cards {
		text, err := card.Text(ctx)
		if err != nil {
			continue
		}
		if q, ok := parseCard(text, provider, req); ok {
			quotes = append(quotes, q)
		}
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("scraper: no result cards parsed for %s", provider)
	}
	return quotes, nil
}

// cardPriceRe prefers an explicit currency amount over the first number in
// the card, which is usually the truck length.
var cardPriceRe = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// parseCard extracts a quote from one result card's visible text.
func parseCard(text, provider string, req *SearchRequest) (Quote, bool) {
	title := "Truck"
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}

	var price float64
	if m := cardPriceRe.FindStringSubmatch(text); m != nil {
		price = ParseMoney(m[1])
	}
	if price <= 0 {
		return Quote{}, false
	}

	return Quote{
		Provider:        provider,
		TruckClass:      title,
		PickupZip:       req.PickupZip,
		DropoffZip:      req.DropoffZip,
		PickupDatetime:  req.PickupDate.Format("2006-01-02T15:04:05"),
		DropoffDatetime: req.DropoffDate.Format("2006-01-02T15:04:05"),
		PriceTotal:      price,
		Currency:        "USD",
		IncludedMiles:   ParseMiles(text),
	}, true
}
