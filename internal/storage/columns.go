package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
)

// Dates and clock times are stored as ISO text so rows sort lexically.

func timeColumn(t *civil.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func parseTimeColumn(v sql.NullString) (*civil.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := civil.ParseTime(v.String)
	if err != nil {
		return nil, fmt.Errorf("parsing time %q: %w", v.String, err)
	}
	return &t, nil
}

func dateColumn(d *civil.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDateColumn(v sql.NullString) (*civil.Date, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(v.String)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", v.String, err)
	}
	return &d, nil
}

func intColumn(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func parseIntColumn(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func categoriesColumn(c []string) (string, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding categories: %w", err)
	}
	return string(b), nil
}

func parseCategoriesColumn(v string) ([]string, error) {
	if v == "" {
		return nil, nil
	}
	var c []string
	if err := json.Unmarshal([]byte(v), &c); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	if len(c) == 0 {
		return nil, nil
	}
	return c, nil
}
