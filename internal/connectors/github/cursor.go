package github

import (
	"encoding/base64"
	"encoding/json"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// Cursor is the opaque pagination position handed to the paginator.
// It is stored verbatim in watermarks, so its encoding must stay stable.
type Cursor struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// Page is the 1-based page number to fetch.
	Page int `json:"page"`
}

// Encode serializes the cursor to a base64-encoded JSON string.
// A nil cursor or one without a page encodes to the empty string, which
// means "no next page".
func (c *Cursor) Encode() string {
	if c == nil || c.Page < 1 {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64-encoded JSON string.
// The empty string decodes to the first page.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return &Cursor{Version: CursorVersion, Page: 1}, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}
	if cursor.Page < 1 {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}

// PageCursor returns the encoded cursor for page, empty if page < 1.
func PageCursor(page int) string {
	return (&Cursor{Version: CursorVersion, Page: page}).Encode()
}
