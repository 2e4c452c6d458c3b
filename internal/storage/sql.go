package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      hostname,
                      config)
VALUES (?, ?, ?)`

	endSessionSQL = `
UPDATE sessions
SET
    end_time = ?,
    summary = ?
WHERE
    id = ? AND end_time IS NULL`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    end_time,
    hostname,
    config,
    summary
FROM sessions
WHERE
    id = ?`

	insertEventSQL = `
INSERT INTO events (session_id,
                    timestamp,
                    unit,
                    kind,
                    detail)
VALUES (?, ?, ?, ?, ?)`

	selectEventsSQL = `
SELECT
    id,
    session_id,
    timestamp,
    unit,
    kind,
    detail
FROM events
WHERE
    session_id = ?
ORDER BY id`
)

//go:embed schema.sql
var initSchemaSQL string
