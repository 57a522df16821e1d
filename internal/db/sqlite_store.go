// Package db is the device-local store: persistent flags and the queue of
// daily reports that could not be delivered.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kaimanfr/checkin/internal/models"
)

// Flag keys read and written by the surrounding app logic.
const (
	flagInitialValuesFilled = "initialValuesFilled"
	flagOnboardingWasShown  = "onboardingWasShown"
	flagHourForNotification = "hourForNotification"
	flagDailyNotificationID = "dailyNotificationId"
)

type LocalStore struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite file at path, applies pragmas and
// migrations, and returns the ready store.
func Open(path string) (*LocalStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	store, err := NewLocalStore(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

func NewLocalStore(conn *sql.DB) (*LocalStore, error) {
	if conn == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := conn.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return &LocalStore{db: conn}, nil
}

func (s *LocalStore) Close() error { return s.db.Close() }

func (s *LocalStore) getFlag(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM flags WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read flag %s: %w", key, err)
	}
	return value, true, nil
}

func (s *LocalStore) setFlag(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO flags (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write flag %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) boolFlag(key string) (bool, error) {
	value, ok, err := s.getFlag(key)
	if err != nil || !ok {
		return false, err
	}
	return value == "1", nil
}

func (s *LocalStore) setBoolFlag(key string, v bool) error {
	value := "0"
	if v {
		value = "1"
	}
	return s.setFlag(key, value)
}

// InitialValuesFilled reports whether the one-time profile was submitted.
func (s *LocalStore) InitialValuesFilled() (bool, error) {
	return s.boolFlag(flagInitialValuesFilled)
}

func (s *LocalStore) SetInitialValuesFilled(v bool) error {
	return s.setBoolFlag(flagInitialValuesFilled, v)
}

// OnboardingWasShown gates the first-launch onboarding screens.
func (s *LocalStore) OnboardingWasShown() (bool, error) {
	return s.boolFlag(flagOnboardingWasShown)
}

func (s *LocalStore) SetOnboardingWasShown(v bool) error {
	return s.setBoolFlag(flagOnboardingWasShown, v)
}

// NotificationHour is the user's preferred daily reminder time, if set.
func (s *LocalStore) NotificationHour() (time.Time, bool, error) {
	value, ok, err := s.getFlag(flagHourForNotification)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse notification hour: %w", err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

func (s *LocalStore) SetNotificationHour(t time.Time) error {
	return s.setFlag(flagHourForNotification, strconv.FormatInt(t.Unix(), 10))
}

// DailyNotificationID identifies the scheduled reminder, if any.
func (s *LocalStore) DailyNotificationID() (string, error) {
	value, _, err := s.getFlag(flagDailyNotificationID)
	return value, err
}

func (s *LocalStore) SetDailyNotificationID(id string) error {
	return s.setFlag(flagDailyNotificationID, id)
}

// pendingPayload is the cached wire form of an undelivered report.
type pendingPayload struct {
	Entries     []models.MetricEntry `json:"datas"`
	Timestamp   time.Time            `json:"date"`
	Coordinates *models.Coordinates  `json:"coordinates,omitempty"`
}

// EnqueuePending stores an undelivered report for a later drain. The
// coordinates, when already attached, are preserved so delivery never
// attaches a second fix.
func (s *LocalStore) EnqueuePending(report *models.DailyMetricsReport) error {
	payload, err := json.Marshal(pendingPayload{
		Entries:     report.Entries,
		Timestamp:   report.Timestamp,
		Coordinates: report.Coordinates,
	})
	if err != nil {
		return fmt.Errorf("encode pending report: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO pending_reports (id, payload, created_at) VALUES (?, ?, ?)`,
		report.ID, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("enqueue pending report: %w", err)
	}
	return nil
}

// PendingReports returns the cached reports, oldest first.
func (s *LocalStore) PendingReports() ([]*models.DailyMetricsReport, error) {
	rows, err := s.db.Query(`SELECT id, payload FROM pending_reports ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.DailyMetricsReport
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan pending report: %w", err)
		}
		var p pendingPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode pending report %s: %w", id, err)
		}
		out = append(out, &models.DailyMetricsReport{
			ID:          id,
			Entries:     p.Entries,
			Timestamp:   p.Timestamp,
			Coordinates: p.Coordinates,
		})
	}
	return out, rows.Err()
}

// DeletePending removes a delivered report from the queue.
func (s *LocalStore) DeletePending(id string) error {
	if _, err := s.db.Exec(`DELETE FROM pending_reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pending report %s: %w", id, err)
	}
	return nil
}
