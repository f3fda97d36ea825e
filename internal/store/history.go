package store

import (
	"context"
	"time"

	"github.com/hazyhaar/domheal/idgen"
)

// HealingRecord is one recorded healing outcome, linked to the snapshot
// that produced the replacement locator when one was involved.
type HealingRecord struct {
	ID            string `json:"id"`
	TestScriptID  string `json:"test_script_id"`
	TestCaseID    string `json:"test_case_id,omitempty"`
	FailedLocator string `json:"failed_locator"`
	HealedLocator string `json:"healed_locator"`
	HealingMethod string `json:"healing_method,omitempty"`
	SnapshotID    string `json:"snapshot_id,omitempty"`
	PageURL       string `json:"page_url,omitempty"`
	HealedAt      int64  `json:"healed_at"`
	Success       bool   `json:"success"`
}

// RecordHealing persists a healing outcome. ID and HealedAt are filled in
// when absent.
func (s *Store) RecordHealing(ctx context.Context, r *HealingRecord) error {
	if r.ID == "" {
		r.ID = idgen.New()
	}
	if r.HealedAt == 0 {
		r.HealedAt = time.Now().UnixMilli()
	}
	success := 0
	if r.Success {
		success = 1
	}
	var snapshotID any
	if r.SnapshotID != "" {
		snapshotID = r.SnapshotID
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO healing_history
			(id, test_script_id, test_case_id, failed_locator, healed_locator,
			 healing_method, snapshot_id, page_url, healed_at, success)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.TestScriptID, r.TestCaseID, r.FailedLocator, r.HealedLocator,
		r.HealingMethod, snapshotID, r.PageURL, r.HealedAt, success,
	)
	return err
}

// HealingFilter narrows a healing history query. Zero values match all.
type HealingFilter struct {
	TestScriptID string
	TestCaseID   string
	Limit        int
}

// HealingHistory returns recorded healing outcomes, newest first.
func (s *Store) HealingHistory(ctx context.Context, f HealingFilter) ([]*HealingRecord, error) {
	query := `
		SELECT id, test_script_id, test_case_id, failed_locator, healed_locator,
		       healing_method, COALESCE(snapshot_id, ''), page_url, healed_at, success
		FROM healing_history WHERE 1=1`
	var args []any
	if f.TestScriptID != "" {
		query += ` AND test_script_id = ?`
		args = append(args, f.TestScriptID)
	}
	if f.TestCaseID != "" {
		query += ` AND test_case_id = ?`
		args = append(args, f.TestCaseID)
	}
	query += ` ORDER BY healed_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*HealingRecord
	for rows.Next() {
		r := &HealingRecord{}
		var success int
		err := rows.Scan(
			&r.ID, &r.TestScriptID, &r.TestCaseID, &r.FailedLocator,
			&r.HealedLocator, &r.HealingMethod, &r.SnapshotID, &r.PageURL,
			&r.HealedAt, &success,
		)
		if err != nil {
			return nil, err
		}
		r.Success = success != 0
		items = append(items, r)
	}
	return items, rows.Err()
}
