package scraper

import (
	"fmt"

	"github.com/saudraja/ollama-ai-scrapper/finder"
	"github.com/saudraja/ollama-ai-scrapper/kb"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// FieldSpecs describes the logical fields of a quote form, independent of
// any provider's markup.
func FieldSpecs() map[string]finder.FieldSpec {
	return map[string]finder.FieldSpec{
		"pickup_input": {
			Interaction: strategy.InteractFill,
			Keywords:    []string{"pickup", "pick-up", "from", "origin", "location"},
		},
		"dropoff_input": {
			Interaction: strategy.InteractFill,
			Keywords:    []string{"dropoff", "drop-off", "to", "destination", "location"},
		},
		"pickup_date": {
			Interaction: strategy.InteractFill,
			Keywords:    []string{"pickup", "pick-up", "date", "start"},
		},
		"dropoff_date": {
			Interaction: strategy.InteractFill,
			Keywords:    []string{"dropoff", "drop-off", "date", "return", "end"},
		},
		"submit_button": {
			Interaction: strategy.InteractClick,
			Keywords:    []string{"get", "search", "find", "rates", "quote", "submit"},
		},
		"result_cards": {
			Interaction: strategy.InteractRead,
			Keywords:    []string{"rate", "quote", "card", "result", "truck"},
		},
		"price_element": {
			Interaction: strategy.InteractRead,
			Keywords:    []string{"price", "total", "cost"},
		},
		"truck_title": {
			Interaction: strategy.InteractRead,
			Keywords:    []string{"truck", "title"},
		},
		"miles_element": {
			Interaction: strategy.InteractRead,
			Keywords:    []string{"miles", "mileage", "included"},
		},
	}
}

// penskeSeed is the hand-curated starting point for the Penske form,
// ordered most to least specific. The learning loop reorders it over time.
var penskeSeed = map[string][]*strategy.Strategy{
	"pickup_input": {
		strategy.Label("Pick-up Location"),
		strategy.Placeholder("Pick-up"),
		strategy.CSS("input[placeholder*='pickup' i]"),
		strategy.CSS("input[placeholder*='Pick-up' i]"),
		strategy.CSS("input[name*='pickup' i]"),
		strategy.CSS("input[id*='pickup' i]"),
		strategy.CSS("input[placeholder*='location' i]:first-of-type"),
		strategy.CSS("input[type='text']:first-of-type"),
		strategy.CSS("[data-test=pickup] input"),
	},
	"dropoff_input": {
		strategy.Label("Drop-off Location"),
		strategy.Placeholder("Drop-off"),
		strategy.CSS("input[placeholder*='dropoff' i]"),
		strategy.CSS("input[placeholder*='Drop-off' i]"),
		strategy.CSS("input[name*='dropoff' i]"),
		strategy.CSS("input[id*='dropoff' i]"),
		strategy.CSS("input[placeholder*='location' i]:nth-of-type(2)"),
		strategy.CSS("input[type='text']:nth-of-type(2)"),
		strategy.CSS("[data-test=dropoff] input"),
	},
	"pickup_date": {
		strategy.Label("Pick-up Date"),
		strategy.CSS("input[type='date']"),
		strategy.CSS("[data-test=pickup-date] input"),
		strategy.CSS("input[placeholder*='date']"),
	},
	"dropoff_date": {
		strategy.Label("Drop-off Date"),
		strategy.CSS("input[type='date']"),
		strategy.CSS("[data-test=dropoff-date] input"),
		strategy.CSS("input[placeholder*='date']"),
	},
	"submit_button": {
		strategy.Role("button", "Get Rates"),
		strategy.Role("button", "Search"),
		strategy.Role("button", "Find"),
		strategy.CSS("button[type='submit']"),
		strategy.CSS("[data-test=submit]"),
	},
	"result_cards": {
		strategy.CSS("[data-test=rate-card]"),
		strategy.CSS(".rate-card"),
		strategy.CSS("article"),
		strategy.CSS(".quote-card"),
		strategy.CSS("[class*='rate']"),
	},
	"price_element": {
		strategy.CSS(".price"),
		strategy.CSS(".total"),
		strategy.CSS("[data-test=total-price]"),
		strategy.CSS("[class*='price']"),
		strategy.CSS("[class*='total']"),
	},
	"truck_title": {
		strategy.CSS("h3"),
		strategy.CSS("h2"),
		strategy.CSS("[data-test=truck-title]"),
		strategy.CSS("[class*='title']"),
	},
	"miles_element": {
		strategy.CSS(".miles"),
		strategy.CSS("[data-test=included-miles]"),
		strategy.CSS("[class*='mile']"),
	},
}

// SeedKB inserts the Penske seed strategies into an empty knowledge base.
// Fields that already carry strategies are left alone so learned
// orderings survive restarts.
func SeedKB(k *kb.KB) error {
	for field, seeds := range penskeSeed {
		if len(k.Lookup("penske", field)) > 0 {
			continue
		}
		for i, s := range seeds {
			if err := k.InsertStrategy("penske", field, s, i); err != nil {
				return fmt.Errorf("seed %s: %w", field, err)
			}
		}
	}
	return k.Persist()
}
