package sitemap

import (
	"testing"
	"time"
)

func TestParseChangeFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want ChangeFrequency
	}{
		{"always", FreqAlways},
		{"hourly", FreqHourly},
		{"daily", FreqDaily},
		{"weekly", FreqWeekly},
		{"monthly", FreqMonthly},
		{"yearly", FreqYearly},
		{"never", FreqNever},
		{"DAILY", FreqDaily},
		{"Weekly", FreqWeekly},
		{" monthly ", FreqMonthly},
		{"sometimes", FreqUnknown},
		{"", FreqUnknown},
	}

	for _, tt := range tests {
		if got := ParseChangeFrequency(tt.in); got != tt.want {
			t.Errorf("ParseChangeFrequency(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestChangeFrequencyString(t *testing.T) {
	for f := FreqAlways; f <= FreqNever; f++ {
		if ParseChangeFrequency(f.String()) != f {
			t.Errorf("round trip failed for %v", f)
		}
	}
	if FreqUnset.String() != "" {
		t.Errorf("FreqUnset.String() = %q, want empty", FreqUnset.String())
	}
}

func TestParseLastMod(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-06-01T10:30:00Z", time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-06-01T10:30:00+02:00", time.Date(2024, 6, 1, 10, 30, 0, 0, time.FixedZone("", 2*60*60))},
		{"2024-06", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		got := parseLastMod(tt.in)
		if !got.Equal(tt.want) {
			t.Errorf("parseLastMod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	if got := parsePriority("0.5"); got == nil || *got != 0.5 {
		t.Errorf("parsePriority(0.5) = %v", got)
	}
	if got := parsePriority(" 1.0 "); got == nil || *got != 1.0 {
		t.Errorf("parsePriority with whitespace = %v", got)
	}
	if got := parsePriority("2.5"); got == nil || *got != 2.5 {
		t.Errorf("out-of-range priority should still parse, got %v", got)
	}
	if got := parsePriority("high"); got != nil {
		t.Errorf("parsePriority(high) = %v, want nil", got)
	}
}
