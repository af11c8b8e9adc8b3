package model

import "time"

// PageState is a snapshot of a browser page at check time.
// It is produced by the browser layer and consumed by the checker;
// it is not mutated after capture.
type PageState struct {
	// URL is the page URL after navigation (redirects included).
	URL string `json:"url"`

	// Title is the document title.
	Title string `json:"title"`

	// Text is the visible text content of the page, truncated to the
	// configured byte budget before prompting.
	Text string `json:"-"`

	// HTML is the raw page markup. Kept out of serialized results due
	// to size; used for text extraction fallback.
	HTML string `json:"-"`

	// Screenshot is the PNG screenshot bytes.
	Screenshot []byte `json:"-"`

	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at"`
}
