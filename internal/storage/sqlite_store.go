package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// SqliteJournal is a Journal kept in a Sqlite database
type SqliteJournal struct {
	dbPath string
	now    func() time.Time

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteJournal creates a journal stored at dbPath. The database and its
// schema are created on first write.
func NewSqliteJournal(dbPath string) *SqliteJournal {
	return &SqliteJournal{
		dbPath: dbPath,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteJournal) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteJournal) getReadDB() (*sql.DB, error) {
	// the schema must exist before a read-only connection can see it
	if _, err := s.getWriteDB(); err != nil {
		return nil, err
	}

	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro&_busy_timeout=5000"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteJournal) CreateSession(ctx context.Context, config any) (sessionID int64, err error) {
	configData, err := toNullJSON(config)
	if err != nil {
		err = fmt.Errorf("encoding config: %w", err)
		return
	}

	hostname, _ := os.Hostname()

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, s.now(), hostname, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteJournal) RecordEvent(ctx context.Context, sessionID int64, unit string, kind EventKind, detail string) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	if _, err = db.ExecContext(ctx, insertEventSQL, sessionID, s.now(), unit, string(kind), toNullString(detail)); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (s *SqliteJournal) EndSession(ctx context.Context, sessionID int64, summary any) (err error) {
	summaryData, err := toNullJSON(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	if _, err = db.ExecContext(ctx, endSessionSQL, s.now(), summaryData, sessionID); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	return nil
}

func (s *SqliteJournal) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	var sess Session
	var endTime sql.NullTime
	var config, summary sql.NullString
	err = db.QueryRowContext(ctx, selectSessionSQL, id).
		Scan(&sess.ID, &sess.StartTime, &endTime, &sess.Hostname, &config, &summary)
	if err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}

	if endTime.Valid {
		sess.EndTime = &endTime.Time
	}
	sess.Config = fromNullString(config)
	sess.Summary = fromNullString(summary)

	return &sess, nil
}

func (s *SqliteJournal) Events(ctx context.Context, sessionID int64) (events []Event, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectEventsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying events: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var ev Event
		var kind string
		var detail sql.NullString
		if err = rows.Scan(&ev.ID, &ev.SessionID, &ev.Timestamp, &ev.Unit, &kind, &detail); err != nil {
			err = fmt.Errorf("scanning event: %w", err)
			return
		}
		ev.Kind = EventKind(kind)
		ev.Detail = fromNullString(detail)
		events = append(events, ev)
	}
	err = rows.Err()
	return
}

// Close closes the database connections
func (s *SqliteJournal) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
