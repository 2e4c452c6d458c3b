package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// toNullJSON stores strings and byte slices as they are and marshals anything else
func toNullJSON(v any) (sql.NullString, error) {
	var data sql.NullString

	switch t := v.(type) {
	case nil:
		return data, nil

	case string:
		data.String = t

	case []byte:
		data.String = string(t)

	default:
		p, err := json.Marshal(v)
		if err != nil {
			return data, fmt.Errorf("marshaling: %w", err)
		}
		data.String = string(p)
	}

	data.Valid = true
	return data, nil
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
