package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/s4584690/Pixel-Weather/internal/alert"
	"github.com/s4584690/Pixel-Weather/internal/weather"
)

// SQLiteStore implements Store on an embedded SQLite database. Every mutation
// runs inside a transaction, which carries the whole-day exclusivity
// invariant as a single atomic write; SQLite's single-writer model serializes
// mutations across users as well, which is stricter than required but
// harmless at this scale.
type SQLiteStore struct {
	db      *sql.DB
	suburbs SuburbChecker
}

// OpenSQLite opens (or creates) the database at the given path, applies
// PRAGMAs, runs migrations, and returns the store.
func OpenSQLite(ctx context.Context, path string, suburbs SuburbChecker) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteStore{db: db, suburbs: suburbs}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE user_id = ?`, userID).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return ErrUserExists
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (user_id, created_at) VALUES (?, ?)`,
		userID, time.Now().UTC().Unix()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timing_windows (id, user_id, start_sec, end_sec, is_active, is_whole_day)
		VALUES (?, ?, ?, ?, 1, 1)`,
		uuid.NewString(), userID, int(alert.Midnight), int(alert.EndOfDay)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) userExists(ctx context.Context, q queryer, userID string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) ListWeatherSubscriptions(ctx context.Context, userID string) ([]alert.WeatherAlertSubscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category FROM weather_subscriptions
		WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []alert.WeatherAlertSubscription
	for rows.Next() {
		var (
			id       string
			uid      string
			category string
		)
		if err := rows.Scan(&id, &uid, &category); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt subscription id %q: %w", id, err)
		}
		res = append(res, alert.WeatherAlertSubscription{
			ID:       parsed,
			UserID:   uid,
			Category: weather.Category(category),
		})
	}
	return res, rows.Err()
}

func (s *SQLiteStore) AddWeatherSubscription(ctx context.Context, userID string, category weather.Category) (alert.WeatherAlertSubscription, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return alert.WeatherAlertSubscription{}, err
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := s.userExists(ctx, tx, userID)
	if err != nil {
		return alert.WeatherAlertSubscription{}, err
	}
	if !ok {
		return alert.WeatherAlertSubscription{}, ErrNotFound
	}

	var dup int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM weather_subscriptions
		WHERE user_id = ? AND category = ? COLLATE NOCASE`,
		userID, string(category)).Scan(&dup); err != nil {
		return alert.WeatherAlertSubscription{}, err
	}
	if dup > 0 {
		return alert.WeatherAlertSubscription{}, ErrDuplicateSubscription
	}

	sub := alert.WeatherAlertSubscription{ID: uuid.New(), UserID: userID, Category: category}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO weather_subscriptions (id, user_id, category) VALUES (?, ?, ?)`,
		sub.ID.String(), userID, string(category)); err != nil {
		return alert.WeatherAlertSubscription{}, err
	}
	return sub, tx.Commit()
}

func (s *SQLiteStore) RemoveWeatherSubscription(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM weather_subscriptions WHERE id = ? AND user_id = ?`,
		id.String(), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLiteStore) ListAreaSubscriptions(ctx context.Context, userID string) ([]alert.AreaAlertSubscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, suburb_id FROM area_subscriptions
		WHERE user_id = ? ORDER BY suburb_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []alert.AreaAlertSubscription
	for rows.Next() {
		var id, uid, suburbID string
		if err := rows.Scan(&id, &uid, &suburbID); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt subscription id %q: %w", id, err)
		}
		res = append(res, alert.AreaAlertSubscription{ID: parsed, UserID: uid, SuburbID: suburbID})
	}
	return res, rows.Err()
}

func (s *SQLiteStore) AddAreaSubscription(ctx context.Context, userID, suburbID string) (alert.AreaAlertSubscription, error) {
	if !s.suburbs.Exists(suburbID) {
		return alert.AreaAlertSubscription{}, ErrInvalidReference
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return alert.AreaAlertSubscription{}, err
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := s.userExists(ctx, tx, userID)
	if err != nil {
		return alert.AreaAlertSubscription{}, err
	}
	if !ok {
		return alert.AreaAlertSubscription{}, ErrNotFound
	}

	var dup int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM area_subscriptions WHERE user_id = ? AND suburb_id = ?`,
		userID, suburbID).Scan(&dup); err != nil {
		return alert.AreaAlertSubscription{}, err
	}
	if dup > 0 {
		return alert.AreaAlertSubscription{}, ErrDuplicateSubscription
	}

	sub := alert.AreaAlertSubscription{ID: uuid.New(), UserID: userID, SuburbID: suburbID}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO area_subscriptions (id, user_id, suburb_id) VALUES (?, ?, ?)`,
		sub.ID.String(), userID, suburbID); err != nil {
		return alert.AreaAlertSubscription{}, err
	}
	return sub, tx.Commit()
}

func (s *SQLiteStore) RemoveAreaSubscription(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM area_subscriptions WHERE id = ? AND user_id = ?`,
		id.String(), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLiteStore) ListTimingWindows(ctx context.Context, userID string) ([]alert.TimingWindow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, start_sec, end_sec, is_active FROM timing_windows
		WHERE user_id = ? ORDER BY start_sec`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []alert.TimingWindow
	for rows.Next() {
		var (
			id       string
			uid      string
			startSec int
			endSec   int
			active   int
		)
		if err := rows.Scan(&id, &uid, &startSec, &endSec, &active); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt window id %q: %w", id, err)
		}
		res = append(res, alert.TimingWindow{
			ID:     parsed,
			UserID: uid,
			Start:  alert.TimeOfDay(startSec),
			End:    alert.TimeOfDay(endSec),
			Active: active != 0,
		})
	}
	return res, rows.Err()
}

func (s *SQLiteStore) AddTimingWindow(ctx context.Context, userID string, start, end alert.TimeOfDay) (alert.TimingWindow, error) {
	// The whole-day window is created only at signup; this entry point always
	// enforces start < end strictly.
	if start >= end {
		return alert.TimingWindow{}, ErrInvalidRange
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return alert.TimingWindow{}, err
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := s.userExists(ctx, tx, userID)
	if err != nil {
		return alert.TimingWindow{}, err
	}
	if !ok {
		return alert.TimingWindow{}, ErrNotFound
	}

	var dup int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM timing_windows
		WHERE user_id = ? AND start_sec = ? AND end_sec = ?`,
		userID, int(start), int(end)).Scan(&dup); err != nil {
		return alert.TimingWindow{}, err
	}
	if dup > 0 {
		return alert.TimingWindow{}, ErrDuplicateSubscription
	}

	w := alert.TimingWindow{ID: uuid.New(), UserID: userID, Start: start, End: end}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timing_windows (id, user_id, start_sec, end_sec, is_active, is_whole_day)
		VALUES (?, ?, ?, ?, 0, 0)`,
		w.ID.String(), userID, int(start), int(end)); err != nil {
		return alert.TimingWindow{}, err
	}
	return w, tx.Commit()
}

func (s *SQLiteStore) SetTimingWindowActive(ctx context.Context, userID string, id uuid.UUID, active bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var wholeDay int
	err = tx.QueryRowContext(ctx, `
		SELECT is_whole_day FROM timing_windows WHERE id = ? AND user_id = ?`,
		id.String(), userID).Scan(&wholeDay)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if active {
		if wholeDay != 0 {
			// Whole-day on: every other window off, in the same transaction.
			if _, err := tx.ExecContext(ctx, `
				UPDATE timing_windows SET is_active = 0
				WHERE user_id = ? AND id != ?`, userID, id.String()); err != nil {
				return err
			}
		} else {
			// Partial on: whole-day off.
			if _, err := tx.ExecContext(ctx, `
				UPDATE timing_windows SET is_active = 0
				WHERE user_id = ? AND is_whole_day = 1`, userID); err != nil {
				return err
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE timing_windows SET is_active = ? WHERE id = ? AND user_id = ?`,
		boolToInt(active), id.String(), userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) RemoveTimingWindow(ctx context.Context, userID string, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var wholeDay int
	err = tx.QueryRowContext(ctx, `
		SELECT is_whole_day FROM timing_windows WHERE id = ? AND user_id = ?`,
		id.String(), userID).Scan(&wholeDay)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if wholeDay != 0 {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM timing_windows WHERE id = ? AND user_id = ?`,
		id.String(), userID); err != nil {
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
