// Package browser captures page state for analysis: it drives a headless
// Chromium instance, navigates to target URLs, and snapshots the visible
// text, markup, and a screenshot of each page.
//
// A Session owns one browser process and can capture many pages. Each
// capture runs in its own incognito context so cookies and storage from
// one target never leak into another.
package browser
