package scraper

import (
	"hash/fnv"
	"strings"
	"time"
)

// DemoQuotes produces deterministic stand-in quotes for a request, used
// when live scraping yields nothing and the demo fallback is enabled.
// The price varies with the zip pair so different routes look different,
// and the same request always prices the same.
func DemoQuotes(req *SearchRequest) []Quote {
	base := 89.99
	switch {
	case strings.Contains(req.Truck, "16"):
		base = 129.99
	case strings.Contains(req.Truck, "24"):
		base = 189.99
	}

	h := fnv.New32a()
	h.Write([]byte(req.PickupZip + req.DropoffZip))
	distanceFactor := float64(h.Sum32() % 50)
	price := base + distanceFactor

	truck := req.Truck
	if truck == "" {
		truck = "16 ft Truck"
	}
	miles := 100

	return []Quote{
		{
			Provider:        "penske",
			TruckClass:      truck,
			PickupZip:       req.PickupZip,
			DropoffZip:      req.DropoffZip,
			PickupDatetime:  req.PickupDate.Format(time.RFC3339),
			DropoffDatetime: req.DropoffDate.Format(time.RFC3339),
			PriceTotal:      round2(price),
			Currency:        "USD",
			IncludedMiles:   &miles,
			DemoFallback:    true,
		},
		{
			Provider:        "penske",
			TruckClass:      "24 ft Truck",
			PickupZip:       req.PickupZip,
			DropoffZip:      req.DropoffZip,
			PickupDatetime:  req.PickupDate.Format(time.RFC3339),
			DropoffDatetime: req.DropoffDate.Format(time.RFC3339),
			PriceTotal:      round2(price + 60),
			Currency:        "USD",
			IncludedMiles:   &miles,
			DemoFallback:    true,
		},
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
