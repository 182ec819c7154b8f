// Package cursor turns record ids into opaque pagination tokens and back.
package cursor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// namespace tags every token so foreign or hand-made strings are rejected.
const namespace = "bookmark:"

// ErrInvalidCursor is returned for malformed or foreign tokens.
var ErrInvalidCursor = errors.New("invalid cursor")

// Encode returns the cursor for id.
func Encode(id int64) string {
	return base64.StdEncoding.EncodeToString([]byte(namespace + strconv.FormatInt(id, 10)))
}

// Decode returns the id a cursor was produced from.
func Decode(c string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(c)
	if err != nil {
		return 0, fmt.Errorf("%w: not base64", ErrInvalidCursor)
	}

	s := string(raw)
	if !strings.HasPrefix(s, namespace) {
		return 0, fmt.Errorf("%w: unknown namespace", ErrInvalidCursor)
	}

	id, err := strconv.ParseInt(s[len(namespace):], 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: bad id", ErrInvalidCursor)
	}

	// One token per id. The decoder skips newlines and ParseInt accepts
	// signs and leading zeros, so re-encode and compare.
	if Encode(id) != c {
		return 0, fmt.Errorf("%w: not canonical", ErrInvalidCursor)
	}
	return id, nil
}
