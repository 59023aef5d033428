package models

import "time"

// Mode selects what a fetch extracts from the rendered page
type Mode int

const (
	ModeSummary     Mode = iota // title, meta description and first heading
	ModeFullContent             // full rendered HTML
)

// ModeFromFlag maps the caller's "full content requested" flag to a Mode
func ModeFromFlag(full bool) Mode {
	if full {
		return ModeFullContent
	}
	return ModeSummary
}

// String implements fmt.Stringer for logging
func (m Mode) String() string {
	switch m {
	case ModeSummary:
		return "summary"
	case ModeFullContent:
		return "full_content"
	}
	return "unknown"
}

// FetchRequest is a single caller-supplied fetch. It is never mutated after creation.
type FetchRequest struct {
	TargetURL string
	Mode      Mode
	Verbose   bool // surface raw error detail for navigation/internal failures
}

// Summary holds the structured fields extracted from a page.
// A nil field means the element was not present on the page.
type Summary struct {
	Title           *string `json:"title"`
	MetaDescription *string `json:"metaDescription"`
	H1              *string `json:"h1"`
}

// FetchResult is the outcome of a successful fetch. Exactly one of Summary or HTML is set,
// depending on Mode.
type FetchResult struct {
	URL       string        `json:"url"`
	Mode      Mode          `json:"-"`
	Summary   *Summary      `json:"summary,omitempty"`
	HTML      string        `json:"html,omitempty"`
	RequestID string        `json:"request_id"`
	Duration  time.Duration `json:"-"`
}
