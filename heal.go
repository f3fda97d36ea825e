package domheal

import (
	"context"
	"fmt"
	"sort"

	"github.com/hazyhaar/domheal/internal/locator"
	"github.com/hazyhaar/domheal/internal/store"
	"github.com/hazyhaar/domheal/internal/urlpattern"
)

// maxHealSnapshots caps how many historical snapshots one healing request
// decompresses and scans. Keeps worst-case latency flat regardless of how
// much history the store holds.
const maxHealSnapshots = 5

// patternSearchLimit bounds the pattern-broadened search over all stored
// snapshots when a dynamic URL has no snapshots of its own.
const patternSearchLimit = 20

// HealRequest describes a broken locator to repair.
type HealRequest struct {
	FailedLocator string          `json:"failedLocator"`
	Dialect       locator.Dialect `json:"locatorType,omitempty"`
	PageURL       string          `json:"pageUrl"`
	SnapshotID    string          `json:"snapshotId,omitempty"`
	CurrentDOM    string          `json:"currentDom,omitempty"`
}

// HealResult is the outcome of a healing request. Expected failure modes
// (nothing to search, no match) come back as Success=false with a reason,
// not as an error.
type HealResult struct {
	Success               bool                `json:"success"`
	Error                 string              `json:"error,omitempty"`
	ErrorCode             string              `json:"error_code,omitempty"`
	Suggestions           []string            `json:"suggestions,omitempty"`
	HealedLocator         string              `json:"healedLocator,omitempty"`
	HealingMethod         string              `json:"healingMethod,omitempty"`
	Confidence            int                 `json:"confidence,omitempty"`
	Reason                string              `json:"reason,omitempty"`
	AllStrategies         []locator.Candidate `json:"allStrategies,omitempty"`
	SnapshotID            string              `json:"snapshotId,omitempty"`
	MatchedSnapshotsCount int                 `json:"matchedSnapshotsCount,omitempty"`
	URLPattern            string              `json:"urlPattern,omitempty"`
	UsedCurrentDOM        bool                `json:"usedCurrentDom"`
	Warning               string              `json:"warning,omitempty"`
}

// Heal repairs a broken locator. It resolves up to maxHealSnapshots stored
// snapshots for the page, extracts the characteristics of the element the
// failed locator used to point at, re-locates the element in the supplied
// current DOM and returns ranked replacement locators. Without a current
// DOM it degrades to unverified candidates synthesized from history alone.
func (h *Healer) Heal(ctx context.Context, req HealRequest) (*HealResult, error) {
	if req.FailedLocator == "" || req.PageURL == "" {
		return &HealResult{
			Success: false,
			Error:   "failedLocator and pageUrl are required",
		}, nil
	}
	if req.Dialect == "" {
		req.Dialect = locator.DialectCSS
	}

	pattern := urlpattern.Analyze(req.PageURL)

	snapshots, err := h.resolveSnapshots(ctx, req, pattern)
	if err != nil {
		return nil, err
	}

	if len(snapshots) == 0 && req.CurrentDOM == "" {
		return &HealResult{
			Success:   false,
			Error:     "no snapshot stored for this URL and no current DOM supplied",
			ErrorCode: "NO_SNAPSHOT_OR_CURRENT_DOM",
			Suggestions: []string{
				"record the page first so a DOM snapshot is stored",
				"pass the current DOM with the request (Playwright: page.content(), Selenium: driver.page_source)",
			},
		}, nil
	}

	// Walk history newest-first; the first snapshot that still knows the
	// element supplies the working characteristics.
	var characteristics *locator.Characteristics
	matchedSnapshotID := ""
	for _, snap := range snapshots {
		doc, err := parseSnapshot(snap)
		if err != nil {
			h.logger.Warn("heal: snapshot unparseable", "snapshot_id", snap.ID, "error", err)
			continue
		}
		if ch := locator.FindElement(doc, req.FailedLocator, req.Dialect); ch != nil {
			characteristics = ch
			matchedSnapshotID = snap.ID
			break
		}
	}

	// Last resort before giving up on history: the element may still be
	// findable by its failed locator in the live page.
	if characteristics == nil && req.CurrentDOM != "" {
		if doc, err := locator.ParseHTML(req.CurrentDOM); err == nil {
			characteristics = locator.FindElement(doc, req.FailedLocator, req.Dialect)
		}
	}

	if characteristics == nil {
		return &HealResult{
			Success: false,
			Error:   "element not found by the failed locator in any snapshot or the current DOM",
		}, nil
	}

	if matchedSnapshotID == "" && len(snapshots) > 0 {
		matchedSnapshotID = snapshots[0].ID
	}

	if req.CurrentDOM == "" {
		return h.healCompat(req, characteristics, matchedSnapshotID, len(snapshots)), nil
	}

	current, err := locator.ParseHTML(req.CurrentDOM)
	if err != nil {
		return nil, fmt.Errorf("domheal: parse current DOM: %w", err)
	}

	match := locator.FindInCurrent(current, characteristics)
	if match == nil {
		return &HealResult{
			Success: false,
			Error:   "element characteristics from history not found in the current DOM; the page structure may have changed",
		}, nil
	}

	candidates := locator.RankCandidates(match, current, req.Dialect)
	if len(candidates) == 0 {
		return &HealResult{
			Success: false,
			Error:   "no valid locator could be generated for the matched element",
		}, nil
	}

	best := candidates[0]
	result := &HealResult{
		Success:               true,
		HealedLocator:         best.Locator,
		HealingMethod:         best.Method,
		Confidence:            min(100, best.Confidence),
		Reason:                best.Reason,
		AllStrategies:         candidates,
		SnapshotID:            matchedSnapshotID,
		MatchedSnapshotsCount: len(snapshots),
		UsedCurrentDOM:        true,
	}
	if pattern.IsDynamic {
		result.URLPattern = pattern.PatternURL
	}
	return result, nil
}

// resolveSnapshots picks the historical snapshots to search: the requested
// one by ID, else the most recent ones for the normalized URL, else (for
// dynamic URLs with no history of their own) stored snapshots whose URL
// matches the same wildcard pattern.
func (h *Healer) resolveSnapshots(ctx context.Context, req HealRequest, pattern urlpattern.Pattern) ([]*store.Snapshot, error) {
	if req.SnapshotID != "" {
		snap, err := h.store.ByID(ctx, req.SnapshotID)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, nil
		}
		return []*store.Snapshot{snap}, nil
	}

	snapshots, err := h.store.Recent(ctx, req.PageURL, maxHealSnapshots)
	if err != nil {
		return nil, err
	}
	if len(snapshots) > 0 || !pattern.IsDynamic {
		return snapshots, nil
	}

	all, err := h.store.ActiveSnapshots(ctx, patternSearchLimit)
	if err != nil {
		return nil, err
	}
	for _, snap := range all {
		if urlpattern.Match(req.PageURL, snap.NormalizedURL) {
			snapshots = append(snapshots, snap)
			if len(snapshots) >= maxHealSnapshots {
				break
			}
		}
	}
	return snapshots, nil
}

// healCompat synthesizes candidates from the historical characteristics
// alone. Confidences are fixed and lower than the verified path, and the
// result carries a warning that nothing was checked against a live page.
func (h *Healer) healCompat(req HealRequest, ch *locator.Characteristics, snapshotID string, snapshotCount int) *HealResult {
	var strategies []locator.Candidate

	text := ch.Text
	if text == "" {
		text = ch.MatchedText
	}
	if text != "" {
		if loc := locator.TextLocator(text, req.Dialect); loc != "" {
			strategies = append(strategies, locator.Candidate{
				Method:     "text",
				Locator:    loc,
				Confidence: 70,
				Reason:     fmt.Sprintf("matched by text %q (no live verification)", text),
			})
		}
	}

	if ch.Attribute != "" && ch.Value != "" {
		if loc := locator.AttributeLocator(ch.Attribute, ch.Value, req.Dialect); loc != "" {
			conf := 75
			if ch.Attribute == "id" {
				conf = 85
			}
			strategies = append(strategies, locator.Candidate{
				Method:     "attribute",
				Locator:    loc,
				Confidence: conf,
				Reason:     fmt.Sprintf("matched by %s=%q (no live verification)", ch.Attribute, ch.Value),
			})
		}
	}

	if len(strategies) == 0 {
		return &HealResult{
			Success: false,
			Error:   "no applicable healing strategy for the element characteristics",
		}
	}

	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Confidence > strategies[j].Confidence
	})
	best := strategies[0]

	return &HealResult{
		Success:               true,
		HealedLocator:         best.Locator,
		HealingMethod:         best.Method,
		Confidence:            best.Confidence,
		Reason:                best.Reason,
		AllStrategies:         strategies,
		SnapshotID:            snapshotID,
		MatchedSnapshotsCount: snapshotCount,
		Warning:               "locator generated without live verification; supply the current DOM for a more accurate result",
	}
}

// parseSnapshot builds a searchable document from a stored snapshot,
// choosing the structured-inventory path when the payload is a metadata
// capture rather than serialized HTML.
func parseSnapshot(snap *store.Snapshot) (*locator.Document, error) {
	if locator.IsMetadataPayload(snap.Data) {
		return locator.ParseMetadata(snap.Data)
	}
	if locator.IsMetadataPayload(snap.Metadata) {
		return locator.ParseMetadata(snap.Metadata)
	}
	return locator.ParseHTML(snap.Data)
}
