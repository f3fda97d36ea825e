package store

import (
	"context"

	"github.com/hazyhaar/domheal/dbopen"
)

// CleanupResult reports what a retention sweep removed.
type CleanupResult struct {
	Expired   int64 `json:"expired"`
	Displaced int64 `json:"displaced"`
}

// CleanupExpired enforces the retention policy in two phases. First it
// removes rows past their hard expiry. Then it walks the survivors per URL
// and keeps only the newest snapshot in each retention bucket, dropping
// bucket collisions and anything beyond the bucket window. The sweep is
// idempotent: a second run right after the first removes nothing.
func (s *Store) CleanupExpired(ctx context.Context) (*CleanupResult, error) {
	now := nowMillis()
	result := &CleanupResult{}

	res, err := dbopen.Exec(ctx, s.DB, `
		DELETE FROM dom_snapshots WHERE expires_at <= ?`, now)
	if err != nil {
		return nil, err
	}
	result.Expired, _ = res.RowsAffected()

	doomed, err := s.bucketViolations(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, id := range doomed {
		if _, err := dbopen.Exec(ctx, s.DB, `
			DELETE FROM dom_snapshots WHERE id = ?`, id); err != nil {
			return nil, err
		}
		result.Displaced++
	}
	return result, nil
}

// bucketViolations returns IDs of snapshots that either fall outside the
// bucket window or share a bucket with a newer snapshot of the same URL.
func (s *Store) bucketViolations(ctx context.Context, now int64) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, normalized_url, captured_at
		FROM dom_snapshots
		ORDER BY normalized_url, captured_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doomed []string
	// Rows arrive newest-first per URL, so the first occupant of each
	// bucket wins and later ones are displaced.
	occupied := make(map[int]bool)
	lastURL := ""
	for rows.Next() {
		var id, url string
		var capturedAt int64
		if err := rows.Scan(&id, &url, &capturedAt); err != nil {
			return nil, err
		}
		if url != lastURL {
			occupied = make(map[int]bool)
			lastURL = url
		}
		bucket := s.Policy.bucketNumber(capturedAt, now)
		if bucket >= s.Policy.MaxPeriods || occupied[bucket] {
			doomed = append(doomed, id)
			continue
		}
		occupied[bucket] = true
	}
	return doomed, rows.Err()
}
