package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// VolumeEvent records one volume change that was sent to the OS.
type VolumeEvent struct {
	ID        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	Distance  int       `json:"distance"`
	Percent   float64   `json:"percent"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository appends to and queries the volume event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create appends e. ID and CreatedAt are filled in when zero.
func (r *EventRepository) Create(e *VolumeEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO volume_events (id, username, action, distance, percent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Username, e.Action, e.Distance, e.Percent, e.CreatedAt,
	)
	return err
}

// Recent returns up to limit events, newest first.
func (r *EventRepository) Recent(limit int) ([]*VolumeEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, username, action, distance, percent, created_at
		 FROM volume_events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*VolumeEvent
	for rows.Next() {
		e := &VolumeEvent{}
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Distance, &e.Percent, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByAction returns how many events exist per action.
func (r *EventRepository) CountByAction() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT action, COUNT(*) FROM volume_events GROUP BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// DeleteBefore drops events older than t and returns how many were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM volume_events WHERE created_at < ?`, t)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
