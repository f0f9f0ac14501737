package sqlbase

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Row maps column names to the values returned by the driver.
type Row map[string]any

// Rows is the result of a statement.
type Rows struct {
	Columns      []string
	Records      []Row
	RowsAffected int64
	Elapsed      time.Duration
}

// First returns the first record, or nil when the result is empty.
func (r *Rows) First() Row {
	if r == nil || len(r.Records) == 0 {
		return nil
	}

	return r.Records[0]
}

// Len returns the number of records.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}

	return len(r.Records)
}

func collect(rows *sql.Rows) (*Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Rows{Columns: columns, Records: make([]Row, 0)}

	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))

		for i := range values {
			targets[i] = &values[i]
		}

		err := rows.Scan(targets...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}

		result.Records = append(result.Records, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	result.RowsAffected = int64(len(result.Records))

	return result, nil
}

// IsNull reports whether the column is missing or NULL.
func (r Row) IsNull(column string) bool {
	return r[column] == nil
}

// String returns a text column; NULL yields an empty string.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns an integer column; NULL and unparsable values yield zero.
func (r Row) Int64(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)

		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)

		return n
	default:
		return 0
	}
}

// Float returns a floating point column; NULL and unparsable values yield zero.
func (r Row) Float(column string) float64 {
	switch v := r[column].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)

		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)

		return f
	default:
		return 0
	}
}

// NullFloat returns a floating point column or nil when it is NULL.
func (r Row) NullFloat(column string) *float64 {
	if r.IsNull(column) {
		return nil
	}

	f := r.Float(column)

	return &f
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Time returns a timestamp column in UTC; NULL and unparsable values yield the zero time.
func (r Row) Time(column string) time.Time {
	switch v := r[column].(type) {
	case time.Time:
		return v.UTC()
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	default:
		return time.Time{}
	}
}

// NullTime returns a timestamp column or nil when it is NULL.
func (r Row) NullTime(column string) *time.Time {
	if r.IsNull(column) {
		return nil
	}

	t := r.Time(column)

	return &t
}

func parseTime(value string) time.Time {
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}
