// Package store provides the SQLite persistence layer for domheal.
package store

import (
	"database/sql"
	"sync"
	"time"

	"github.com/hazyhaar/domheal/dbopen"
)

// RetentionPolicy controls the time-bucketed history kept per URL: one
// snapshot per bucket of IntervalDays width, MaxPeriods buckets deep,
// hard-expired after RetentionDays.
type RetentionPolicy struct {
	IntervalDays  int
	MaxPeriods    int
	RetentionDays int
}

func (p *RetentionPolicy) defaults() {
	if p.IntervalDays <= 0 {
		p.IntervalDays = 15
	}
	if p.MaxPeriods <= 0 {
		p.MaxPeriods = 3
	}
	if p.RetentionDays <= 0 {
		p.RetentionDays = p.IntervalDays * p.MaxPeriods
	}
}

// Store is the domheal database handle.
type Store struct {
	DB     *sql.DB
	Policy RetentionPolicy

	mu       sync.Mutex
	urlLocks map[string]*urlLock
}

type urlLock struct {
	mu   sync.Mutex
	refs int
}

// Open opens (or creates) the domheal SQLite database at path, applies the
// production pragmas and the schema.
func Open(path string, policy RetentionPolicy, opts ...dbopen.Option) (*Store, error) {
	policy.defaults()

	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return New(db, policy), nil
}

// New wraps an already-open database. Used by tests with dbopen.OpenMemory.
func New(db *sql.DB, policy RetentionPolicy) *Store {
	policy.defaults()
	return &Store{
		DB:       db,
		Policy:   policy,
		urlLocks: make(map[string]*urlLock),
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// lockURL serializes writers for one normalized URL. Save's
// check-then-evict-then-insert sequence must not interleave for the same
// key, or two concurrent captures both land in bucket 0. Entries are
// refcounted and dropped once uncontended so the map stays bounded by the
// number of in-flight saves, not by every URL ever seen.
func (s *Store) lockURL(normalizedURL string) func() {
	s.mu.Lock()
	l, ok := s.urlLocks[normalizedURL]
	if !ok {
		l = &urlLock{}
		s.urlLocks[normalizedURL] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.urlLocks, normalizedURL)
		}
		s.mu.Unlock()
	}
}

const millisPerDay = 24 * 60 * 60 * 1000

// bucketNumber computes which retention bucket a capture falls in, measured
// backward from now. Future-dated captures clamp to bucket 0.
func (p RetentionPolicy) bucketNumber(capturedAt, now int64) int {
	days := (now - capturedAt) / millisPerDay
	if days < 0 {
		days = 0
	}
	return int(days) / p.IntervalDays
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
