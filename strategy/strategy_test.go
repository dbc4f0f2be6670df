package strategy

import (
	"encoding/json"
	"testing"
)

func TestValidate_RequiredParams(t *testing.T) {
	cases := []struct {
		name    string
		s       *Strategy
		wantErr bool
	}{
		{"css ok", CSS("input[type='text']"), false},
		{"css empty selector", CSS("  "), true},
		{"xpath ok", XPath("//input"), false},
		{"placeholder ok", Placeholder("Pick-up"), false},
		{"testid ok", TestID("pickup-location"), false},
		{"role with name", Role("button", "Get Rates"), false},
		{"role missing name", Role("button", ""), true},
		{"unknown kind", &Strategy{Kind: "regex", Params: map[string]string{"x": "y"}}, true},
		{"nil params", &Strategy{Kind: KindCSS}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_RoleDefaultsToButton(t *testing.T) {
	s := &Strategy{Kind: KindRole, Params: map[string]string{"name": "Search"}}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Params["role"] != "button" {
		t.Fatalf("expected role defaulted to button, got %q", s.Params["role"])
	}
}

func TestFingerprint_IgnoresStats(t *testing.T) {
	a := CSS("#old-id")
	b := CSS("#old-id")
	b.SuccessCount = 14
	b.FailureCount = 2

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("fingerprint must ignore statistics")
	}
	if a.Fingerprint() == CSS("#new-id").Fingerprint() {
		t.Fatal("different params must fingerprint differently")
	}
	if a.Fingerprint() == XPath("#old-id").Fingerprint() {
		t.Fatal("different kinds must fingerprint differently")
	}
}

func TestEqual(t *testing.T) {
	if !CSS("a").Equal(CSS("a")) {
		t.Fatal("identical strategies must be equal")
	}
	if CSS("a").Equal(CSS("b")) {
		t.Fatal("different selectors must not be equal")
	}
	if Placeholder("From").Equal(Text("From")) {
		t.Fatal("different kinds must not be equal")
	}
	if CSS("a").Equal(nil) {
		t.Fatal("nil must not be equal")
	}
}

func TestClone_Isolation(t *testing.T) {
	orig := Role("button", "Get Rates")
	c := orig.Clone()
	c.Params["name"] = "Search"
	c.SuccessCount = 99

	if orig.Params["name"] != "Get Rates" {
		t.Fatal("clone mutation leaked into original params")
	}
	if orig.SuccessCount != 0 {
		t.Fatal("clone mutation leaked into original stats")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := TestID("pickup-location")
	s.SuccessCount = 3

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var got Strategy
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(s) || got.SuccessCount != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.LastUsedAt != nil {
		t.Fatal("zero-use strategy must have nil last_used_at")
	}
}

func TestContains(t *testing.T) {
	list := []*Strategy{CSS("#a"), Placeholder("From")}
	if !Contains(list, CSS("#a")) {
		t.Fatal("expected structural containment")
	}
	if Contains(list, CSS("#b")) {
		t.Fatal("unexpected containment")
	}
}
