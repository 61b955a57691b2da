package events

import "testing"

func TestPatternMatches(t *testing.T) {
	cases := []struct {
		pattern string
		event   string
		want    bool
	}{
		{"*", "weather.current", true},
		{"*", "anything", true},
		{"weather.*", "weather.current", true},
		{"weather.*", "weather.coords", true},
		{"weather.*", "geo.search", false},
		{"weather.*", "weather", false},
		{"weather.*", "weather.alerts.storm", true},
		{"weather.alerts.*", "weather.alerts.storm", true},
		{"weather.alerts.*", "weather.current", false},
		{"weather.alerts.*", "weather.alertsx.storm", false},
		{"weather.current", "weather.current", true},
		{"weather.current", "weather.currently", false},
		{".*", ".*", true},
		{".*", "x.y", false},
	}
	for _, tc := range cases {
		got := ParsePattern(tc.pattern).Matches(ParseType(tc.event))
		if got != tc.want {
			t.Errorf("ParsePattern(%q).Matches(%q) = %v, want %v", tc.pattern, tc.event, got, tc.want)
		}
	}
}

func TestParseType(t *testing.T) {
	typ := ParseType("weather.forecast")
	if typ.Domain() != "weather" || typ.Kind() != "forecast" {
		t.Fatalf("unexpected split: %q / %q", typ.Domain(), typ.Kind())
	}
	if typ.String() != "weather.forecast" {
		t.Fatalf("unexpected raw type %q", typ.String())
	}
}
