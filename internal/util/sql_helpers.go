package util

import (
	"database/sql"
	"time"
)

// StringToNullString converts a string to sql.NullString.
// An empty string is treated as NULL.
func StringToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// TimeToNullTime converts a time.Time to sql.NullTime.
// A zero time is treated as NULL.
func TimeToNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// TimePtrToNullTime converts an optional time to sql.NullTime.
func TimePtrToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// NullTimeToPtr converts sql.NullTime back to an optional time.
func NullTimeToPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

// IntPtrToNullInt64 converts an optional int to sql.NullInt64.
func IntPtrToNullInt64(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// NullInt64ToIntPtr converts sql.NullInt64 back to an optional int.
func NullInt64ToIntPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	value := int(i.Int64)
	return &value
}

// BoolPtrToNullBool converts an optional bool to sql.NullBool.
func BoolPtrToNullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// NullBoolToBoolPtr converts sql.NullBool back to an optional bool.
func NullBoolToBoolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	value := b.Bool
	return &value
}
