// Package cursor encodes message positions for keyset pagination.
//
// A cursor is the standard base64 encoding of "<epoch-millis>-<message-id>".
package cursor

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Position identifies a message in (created_at, id) order.
type Position struct {
	CreatedAt time.Time
	Id        uuid.UUID
}

func Encode(p Position) string {
	raw := strconv.FormatInt(p.CreatedAt.UnixMilli(), 10) + "-" + p.Id.String()
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func Decode(s string) (Position, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Position{}, ErrInvalidCursor
	}

	millis, id, ok := strings.Cut(string(raw), "-")
	if !ok {
		return Position{}, ErrInvalidCursor
	}

	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil || ms < 0 {
		return Position{}, ErrInvalidCursor
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Position{}, ErrInvalidCursor
	}

	return Position{CreatedAt: time.UnixMilli(ms).UTC(), Id: parsed}, nil
}

// After reports whether p sorts strictly after (t, id), i.e. (t, id) lies on the older side of the cursor.
func (p Position) After(t time.Time, id uuid.UUID) bool {
	if t.Before(p.CreatedAt) {
		return true
	}
	return t.Equal(p.CreatedAt) && strings.Compare(id.String(), p.Id.String()) < 0
}
