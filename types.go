package domheal

import (
	"github.com/hazyhaar/domheal/internal/locator"
	"github.com/hazyhaar/domheal/internal/store"
)

// Re-exported types from internal packages for use by cmd/ and external
// callers.
type (
	Snapshot      = store.Snapshot
	SaveInput     = store.SaveInput
	SaveResult    = store.SaveResult
	CleanupResult = store.CleanupResult
	Stats         = store.Stats
	HealingRecord = store.HealingRecord
	HealingFilter = store.HealingFilter
	Candidate     = locator.Candidate
	Dialect       = locator.Dialect
)

// Locator dialects accepted in healing requests.
const (
	DialectPlaywright = locator.DialectPlaywright
	DialectSelenium   = locator.DialectSelenium
	DialectCSS        = locator.DialectCSS
	DialectText       = locator.DialectText
)
