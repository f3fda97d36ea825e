package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/hazyhaar/domheal/dbopen"
	"github.com/hazyhaar/domheal/idgen"
	"github.com/hazyhaar/domheal/internal/codec"
	"github.com/hazyhaar/domheal/internal/urlpattern"
)

// Snapshot is a stored DOM capture. Data holds the decoded snapshot text;
// WasCompressed reports whether the stored form round-tripped through gzip
// or had to be served raw after a decode failure.
type Snapshot struct {
	ID            string `json:"id"`
	NormalizedURL string `json:"normalized_url"`
	Data          string `json:"data"`
	Hash          string `json:"hash"`
	PageTitle     string `json:"page_title,omitempty"`
	Metadata      string `json:"metadata,omitempty"`
	WasCompressed bool   `json:"was_compressed"`
	CapturedAt    int64  `json:"captured_at"`
	ExpiresAt     int64  `json:"expires_at"`
}

// SaveInput is a capture submitted for persistence. DOM is the uncompressed
// snapshot payload, either serialized HTML or a metadata-inventory JSON
// document.
type SaveInput struct {
	URL        string
	DOM        string
	PageTitle  string
	Metadata   string
	CapturedAt int64
}

// SaveResult reports what Save did with a capture.
type SaveResult struct {
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
	SnapshotID string `json:"snapshot_id"`
}

// Save persists a capture, deduplicating by content hash and keeping at most
// one snapshot per retention bucket for the URL. A payload whose hash already
// exists for the same normalized URL is skipped. A newer capture replaces any
// existing current-bucket snapshot for the URL.
func (s *Store) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	if strings.TrimSpace(in.DOM) == "" {
		return nil, errors.New("store: empty snapshot payload")
	}

	norm := urlpattern.Normalize(in.URL)
	hash := codec.Hash(in.DOM)

	now := nowMillis()
	capturedAt := in.CapturedAt
	if capturedAt == 0 {
		capturedAt = now
	}

	unlock := s.lockURL(norm)
	defer unlock()

	var existingID string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id FROM dom_snapshots
		WHERE normalized_url = ? AND snapshot_hash = ? AND expires_at > ?`,
		norm, hash, now).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existingID != "" {
		return &SaveResult{Skipped: true, Reason: "duplicate", SnapshotID: existingID}, nil
	}

	data, compressed := encodePayload(in.DOM)

	snap := &Snapshot{
		ID:            idgen.New(),
		NormalizedURL: norm,
		Data:          data,
		Hash:          hash,
		PageTitle:     in.PageTitle,
		Metadata:      in.Metadata,
		WasCompressed: compressed,
		CapturedAt:    capturedAt,
		ExpiresAt:     capturedAt + int64(s.Policy.RetentionDays)*millisPerDay,
	}

	compressedFlag := 0
	if snap.WasCompressed {
		compressedFlag = 1
	}

	// The incoming capture lands in the current bucket, superseding any
	// snapshot already there, including one sharing its exact millisecond.
	// The new row is not inserted yet, so the inclusive bound cannot evict
	// it. Anything past the bucket window or its hard expiry goes too, so
	// a stalled sweeper never lets reads see stale history.
	bucketCutoff := capturedAt - int64(s.Policy.IntervalDays)*millisPerDay
	windowCutoff := capturedAt - int64(s.Policy.MaxPeriods*s.Policy.IntervalDays)*millisPerDay

	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM dom_snapshots
			WHERE normalized_url = ?
			  AND ((captured_at > ? AND captured_at <= ?) OR captured_at <= ? OR expires_at <= ?)`,
			norm, bucketCutoff, capturedAt, windowCutoff, now)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO dom_snapshots
				(id, normalized_url, snapshot_data, snapshot_hash, page_title,
				 metadata, compressed, captured_at, expires_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			snap.ID, snap.NormalizedURL, snap.Data, snap.Hash, snap.PageTitle,
			snap.Metadata, compressedFlag, snap.CapturedAt, snap.ExpiresAt,
		)
		return err
	})
	if err != nil {
		// A concurrent writer for a different normalized form of the same
		// URL can still race us into the UNIQUE constraint. Same payload,
		// same outcome: the capture is already stored.
		if isUniqueViolation(err) {
			return &SaveResult{Skipped: true, Reason: "duplicate"}, nil
		}
		return nil, err
	}

	return &SaveResult{SnapshotID: snap.ID}, nil
}

// encodePayload prepares the stored form of a capture: HTML payloads are
// minified, everything is gzipped and base64-framed. A compression failure
// falls back to storing the payload raw, flagged uncompressed.
func encodePayload(payload string) (data string, compressed bool) {
	stored := payload
	if strings.HasPrefix(strings.TrimSpace(payload), "<") {
		stored = codec.Minify(payload)
	}
	raw, err := codec.Compress(stored)
	if err != nil {
		return stored, false
	}
	return codec.Encode(raw), true
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const snapshotColumns = `id, normalized_url, snapshot_data, snapshot_hash,
       page_title, metadata, compressed, captured_at, expires_at`

// Latest returns the most recent non-expired snapshot for a URL, or nil.
func (s *Store) Latest(ctx context.Context, rawURL string) (*Snapshot, error) {
	norm := urlpattern.Normalize(rawURL)
	return s.querySnapshot(ctx, `
		SELECT `+snapshotColumns+`
		FROM dom_snapshots
		WHERE normalized_url = ? AND expires_at > ?
		ORDER BY captured_at DESC LIMIT 1`, norm, nowMillis())
}

// Recent returns up to limit non-expired snapshots for a URL, newest first,
// with payloads decoded.
func (s *Store) Recent(ctx context.Context, rawURL string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 5
	}
	norm := urlpattern.Normalize(rawURL)
	return s.querySnapshots(ctx, `
		SELECT `+snapshotColumns+`
		FROM dom_snapshots
		WHERE normalized_url = ? AND expires_at > ?
		ORDER BY captured_at DESC LIMIT ?`, norm, nowMillis(), limit)
}

// History returns payload-free summaries of a URL's non-expired snapshots,
// newest first.
func (s *Store) History(ctx context.Context, rawURL string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	norm := urlpattern.Normalize(rawURL)

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, normalized_url, snapshot_hash, page_title, captured_at, expires_at
		FROM dom_snapshots
		WHERE normalized_url = ? AND expires_at > ?
		ORDER BY captured_at DESC LIMIT ?`, norm, nowMillis(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		err := rows.Scan(&snap.ID, &snap.NormalizedURL, &snap.Hash,
			&snap.PageTitle, &snap.CapturedAt, &snap.ExpiresAt)
		if err != nil {
			return nil, err
		}
		items = append(items, snap)
	}
	return items, rows.Err()
}

// ByID retrieves a snapshot by ID regardless of expiry, or nil.
func (s *Store) ByID(ctx context.Context, id string) (*Snapshot, error) {
	return s.querySnapshot(ctx, `
		SELECT `+snapshotColumns+`
		FROM dom_snapshots WHERE id = ?`, id)
}

// ActiveSnapshots returns up to limit non-expired snapshots across all URLs,
// newest first. Used to broaden a healing search across URL patterns.
func (s *Store) ActiveSnapshots(ctx context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.querySnapshots(ctx, `
		SELECT `+snapshotColumns+`
		FROM dom_snapshots
		WHERE expires_at > ?
		ORDER BY captured_at DESC LIMIT ?`, nowMillis(), limit)
}

// Stats summarises the store contents.
type Stats struct {
	TotalSnapshots int   `json:"total_snapshots"`
	UniqueURLs     int   `json:"unique_urls"`
	ExpiredPending int   `json:"expired_pending"`
	OldestCapture  int64 `json:"oldest_capture,omitempty"`
	NewestCapture  int64 `json:"newest_capture,omitempty"`
	HealingRecords int   `json:"healing_records"`
}

// SnapshotStats reports counts over the snapshot and healing tables.
func (s *Store) SnapshotStats(ctx context.Context) (*Stats, error) {
	now := nowMillis()
	st := &Stats{}

	var oldest, newest sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT normalized_url),
		       MIN(captured_at), MAX(captured_at)
		FROM dom_snapshots WHERE expires_at > ?`, now).Scan(
		&st.TotalSnapshots, &st.UniqueURLs, &oldest, &newest)
	if err != nil {
		return nil, err
	}
	if oldest.Valid {
		st.OldestCapture = oldest.Int64
	}
	if newest.Valid {
		st.NewestCapture = newest.Int64
	}

	err = s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM dom_snapshots WHERE expires_at <= ?`, now).Scan(&st.ExpiredPending)
	if err != nil {
		return nil, err
	}

	err = s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM healing_history`).Scan(&st.HealingRecords)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) querySnapshot(ctx context.Context, query string, args ...any) (*Snapshot, error) {
	snap, err := scanSnapshot(s.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...any) ([]*Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, snap)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSnapshot decodes a stored row back to usable text. A stored form that
// no longer decompresses is served raw and flagged, never dropped.
func scanSnapshot(row rowScanner) (*Snapshot, error) {
	snap := &Snapshot{}
	var stored string
	var compressedFlag int

	err := row.Scan(
		&snap.ID, &snap.NormalizedURL, &stored, &snap.Hash,
		&snap.PageTitle, &snap.Metadata, &compressedFlag,
		&snap.CapturedAt, &snap.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if compressedFlag == 0 {
		snap.Data = stored
		return snap, nil
	}
	snap.Data, snap.WasCompressed = codec.Decompress(codec.Decode(stored))
	return snap, nil
}
