// Package db persists finished workout sessions and their rep history to
// sqlite. The engine itself never persists anything; the surrounding
// application hands it a summary at session end.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/repcoach/repcoach/internal/engine"
)

type DB struct {
	*sql.DB
}

// NewDB opens (and creates if missing) the session store at path. Run
// MigrateUp before first use.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; keep the pool honest.
	db.SetMaxOpenConns(1)
	return &DB{db}, nil
}

// StoredSession is one persisted session row.
type StoredSession struct {
	SessionID         string    `json:"session_id"`
	Exercise          string    `json:"exercise"`
	TotalReps         int       `json:"total_reps"`
	AverageFormScore  float64   `json:"average_form_score"`
	DurationSeconds   float64   `json:"duration_seconds"`
	ActiveHoldSeconds float64   `json:"active_hold_seconds"`
	EstimatedCalories float64   `json:"estimated_calories"`
	CreatedAt         time.Time `json:"created_at"`
}

// SaveSession stores a finished session summary together with its rep
// history in one transaction.
func (db *DB) SaveSession(summary engine.Summary, reps []engine.RepRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (
			session_id, exercise, total_reps, avg_form_score,
			duration_seconds, active_hold_seconds, estimated_calories
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.SessionID.String(), string(summary.Exercise), summary.TotalReps,
		summary.AverageFormScore, summary.DurationSeconds,
		summary.ActiveHoldSeconds, summary.EstimatedCalories,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, rep := range reps {
		feedback, err := json.Marshal(rep.Feedback)
		if err != nil {
			return fmt.Errorf("failed to encode feedback: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO reps (
				rep_id, session_id, rep_index, start_nanos, end_nanos,
				bottom_angle, form_score, feedback
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.ID.String(), summary.SessionID.String(), rep.Index,
			rep.StartNanos, rep.EndNanos, rep.Bottom, rep.Score, string(feedback),
		)
		if err != nil {
			return fmt.Errorf("failed to insert rep %d: %w", rep.Index, err)
		}
	}

	return tx.Commit()
}

// Sessions returns the most recent stored sessions, newest first.
func (db *DB) Sessions(limit int) ([]StoredSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT session_id, exercise, total_reps, avg_form_score,
		       duration_seconds, active_hold_seconds, estimated_calories, created_at
		FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []StoredSession
	for rows.Next() {
		var s StoredSession
		if err := rows.Scan(
			&s.SessionID, &s.Exercise, &s.TotalReps, &s.AverageFormScore,
			&s.DurationSeconds, &s.ActiveHoldSeconds, &s.EstimatedCalories, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SessionReps returns the stored rep records of one session in order.
func (db *DB) SessionReps(sessionID string) ([]engine.RepRecord, error) {
	rows, err := db.Query(`
		SELECT rep_index, start_nanos, end_nanos, bottom_angle, form_score, feedback
		FROM reps WHERE session_id = ? ORDER BY rep_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []engine.RepRecord
	for rows.Next() {
		var r engine.RepRecord
		var feedback string
		if err := rows.Scan(&r.Index, &r.StartNanos, &r.EndNanos, &r.Bottom, &r.Score, &feedback); err != nil {
			return nil, err
		}
		if feedback != "" {
			if err := json.Unmarshal([]byte(feedback), &r.Feedback); err != nil {
				return nil, fmt.Errorf("failed to decode feedback: %w", err)
			}
		}
		reps = append(reps, r)
	}
	return reps, rows.Err()
}

// Stats is the aggregate workout history view.
type Stats struct {
	TotalSessions        int     `json:"total_sessions"`
	TotalReps            int     `json:"total_reps"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
	SessionsThisWeek     int     `json:"sessions_this_week"`
}

// Stats aggregates the stored history.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	err := db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(total_reps), 0),
		       COALESCE(SUM(duration_seconds), 0)
		FROM sessions`).Scan(&s.TotalSessions, &s.TotalReps, &s.TotalDurationSeconds)
	if err != nil {
		return Stats{}, err
	}
	err = db.QueryRow(`
		SELECT COUNT(*) FROM sessions
		WHERE created_at >= datetime('now', '-7 days')`).Scan(&s.SessionsThisWeek)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
