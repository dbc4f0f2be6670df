package scraper

import (
	"fmt"
	"strings"
	"time"
)

// Quote is one priced rental offer.
type Quote struct {
	Provider           string   `json:"provider"`
	TruckClass         string   `json:"truck_class"`
	PickupZip          string   `json:"pickup_zip"`
	DropoffZip         string   `json:"dropoff_zip"`
	PickupDatetime     string   `json:"pickup_datetime"`
	DropoffDatetime    string   `json:"dropoff_datetime"`
	PriceTotal         float64  `json:"price_total"`
	Currency           string   `json:"currency"`
	TaxesAndFees       *float64 `json:"taxes_and_fees"`
	IncludedMiles      *int     `json:"included_miles"`
	PerMileRate        *float64 `json:"per_mile_rate"`
	AddOns             []AddOn  `json:"add_ons"`
	CancellationPolicy *string  `json:"cancellation_policy"`
	DemoFallback       bool     `json:"demo_fallback"`
}

// AddOn is an optional extra attached to a quote.
type AddOn struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// SearchRequest describes one quote search.
type SearchRequest struct {
	PickupZip   string    `json:"pickup_zip"`
	DropoffZip  string    `json:"dropoff_zip"`
	PickupDate  time.Time `json:"pickup_date"`
	DropoffDate time.Time `json:"dropoff_date"`

	// Truck is an optional size hint, e.g. "16 ft Truck".
	Truck string `json:"truck,omitempty"`
}

// Validate checks the request fields the form cannot tolerate missing.
func (r *SearchRequest) Validate() error {
	if zip := strings.TrimSpace(r.PickupZip); len(zip) < 3 || len(zip) > 12 {
		return fmt.Errorf("pickup_zip must be 3-12 characters")
	}
	if zip := strings.TrimSpace(r.DropoffZip); len(zip) < 3 || len(zip) > 12 {
		return fmt.Errorf("dropoff_zip must be 3-12 characters")
	}
	if r.PickupDate.IsZero() || r.DropoffDate.IsZero() {
		return fmt.Errorf("pickup_date and dropoff_date are required")
	}
	if r.DropoffDate.Before(r.PickupDate) {
		return fmt.Errorf("dropoff_date is before pickup_date")
	}
	return nil
}
