// Package pagination implements keyset cursors over (created_at, id), newest first.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is the last row of the previous page. The next page holds rows strictly
// older than (Timestamp, LastID).
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// Encode returns an opaque token that is safe to put in a query string unescaped.
func (c Cursor) Encode() string {
	if c.LastID == "" {
		return ""
	}
	raw := c.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + c.LastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token from Encode. An empty token means the first page and
// yields a nil cursor.
func Decode(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// ClampLimit applies DefaultLimit to non-positive limits and caps at MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Page is one page of rows and the cursor of the page after it.
type Page[T any] struct {
	Items   []T
	Cursor  string
	HasMore bool
}

// Trim builds a page from rows fetched with limit+1. The extra row only signals
// that another page exists and is dropped.
func Trim[T any](rows []T, limit int, key func(T) (string, time.Time)) Page[T] {
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	items := rows[:limit]
	id, ts := key(items[len(items)-1])
	return Page[T]{
		Items:   items,
		Cursor:  Cursor{LastID: id, Timestamp: ts}.Encode(),
		HasMore: true,
	}
}
