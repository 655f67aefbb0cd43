package sitemap

import (
	"strconv"
	"strings"
	"time"
)

// ChangeFrequency is the expected change rate of a page, from <changefreq>.
type ChangeFrequency int

const (
	FreqUnset ChangeFrequency = iota
	FreqAlways
	FreqHourly
	FreqDaily
	FreqWeekly
	FreqMonthly
	FreqYearly
	FreqNever
	// FreqUnknown means the document carried a <changefreq> value outside the
	// protocol's vocabulary. The raw text is kept on the entry.
	FreqUnknown
)

func (f ChangeFrequency) String() string {
	switch f {
	case FreqAlways:
		return "always"
	case FreqHourly:
		return "hourly"
	case FreqDaily:
		return "daily"
	case FreqWeekly:
		return "weekly"
	case FreqMonthly:
		return "monthly"
	case FreqYearly:
		return "yearly"
	case FreqNever:
		return "never"
	case FreqUnknown:
		return "unknown"
	default:
		return ""
	}
}

// ParseChangeFrequency matches the protocol vocabulary case-insensitively.
// Anything else maps to FreqUnknown.
func ParseChangeFrequency(s string) ChangeFrequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return FreqAlways
	case "hourly":
		return FreqHourly
	case "daily":
		return FreqDaily
	case "weekly":
		return FreqWeekly
	case "monthly":
		return FreqMonthly
	case "yearly":
		return FreqYearly
	case "never":
		return FreqNever
	default:
		return FreqUnknown
	}
}

// Entry is one <url> record from a urlset document.
//
// Optional fields are parsed leniently: values that fail strict parsing keep
// their raw text and leave the typed field unset, so a sloppy sitemap still
// yields its URLs.
type Entry struct {
	// Location is the page URL from <loc>. Always set; records without it
	// are dropped during parsing.
	Location string

	// LastMod is the raw <lastmod> text, empty if absent.
	LastMod string
	// LastModTime is LastMod parsed as a W3C datetime. Zero when LastMod is
	// absent or unparseable.
	LastModTime time.Time

	// ChangeFreq is FreqUnset when the element is absent and FreqUnknown when
	// the value is outside the protocol vocabulary (see ChangeFreqRaw).
	ChangeFreq    ChangeFrequency
	ChangeFreqRaw string

	// Priority is the parsed <priority>, nil when absent or non-numeric.
	// Out-of-range values are preserved as-is; the protocol says [0.0, 1.0]
	// but violating that is the publisher's problem, not a parse error.
	Priority    *float64
	PriorityRaw string
}

// IndexEntry is one <sitemap> record from a sitemapindex document. These are
// consumed internally by the walker and never surface to its consumer.
type IndexEntry struct {
	Location    string
	LastMod     string
	LastModTime time.Time
}

// lastmod layouts per W3C datetime, most specific first.
var lastModLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseLastMod(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parsePriority(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &v
}
