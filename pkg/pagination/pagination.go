package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds cursor pagination inputs from controllers.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points past the last id served on the previous page.
type Cursor struct {
	AfterID int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor builds an opaque cursor string.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("after|%d", cursor.AfterID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string. An empty value yields nil.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[0] != "after" {
		return nil, fmt.Errorf("invalid cursor format")
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id < 0 {
		return nil, fmt.Errorf("invalid cursor id")
	}
	return &Cursor{AfterID: id}, nil
}

// Page slices ids-ordered items after the cursor. next is empty on the last page.
func Page[T any](items []T, idOf func(T) int, params Params) (page []T, next string, err error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	start := 0
	if cursor != nil {
		for start < len(items) && idOf(items[start]) <= cursor.AfterID {
			start++
		}
	}
	limit := NormalizeLimit(params.Limit)
	end := start + limit
	if end >= len(items) {
		return items[start:], "", nil
	}
	page = items[start:end]
	return page, EncodeCursor(Cursor{AfterID: idOf(page[len(page)-1])}), nil
}
