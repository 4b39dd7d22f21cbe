// Package orderref generates and parses the order identifiers that correlate
// a checkout with its later payment callback. References have the shape
// course_<type>_<unixMillis>_<suffix> where suffix is 9 random base36
// characters. They are unique enough for this volume but deliberately
// non-cryptographic: authenticity always comes from the callback signature,
// never from the reference being unguessable.
package orderref

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	prefix       = "course"
	suffixLen    = 9
	suffixChars  = "abcdefghijklmnopqrstuvwxyz0123456789"
	fieldCount   = 4
	maxRefLength = 128
)

// ErrMalformed reports a reference that does not follow the expected shape.
var ErrMalformed = errors.New("orderref: malformed order reference")

// Encode builds a fresh order reference for the given course type.
func Encode(courseType string) string {
	return EncodeAt(courseType, time.Now())
}

// EncodeAt is Encode with an explicit timestamp, for tests.
func EncodeAt(courseType string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d_%s", prefix, courseType, at.UnixMilli(), randomSuffix())
}

// Decode extracts the course type tag from an order reference.
//
// The split assumes course types contain no underscore of their own; the
// known catalog guarantees that today, but a future type with an underscore
// would break this parsing.
func Decode(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || len(ref) > maxRefLength {
		return "", ErrMalformed
	}
	parts := strings.Split(ref, "_")
	if len(parts) < fieldCount || parts[0] != prefix {
		return "", ErrMalformed
	}
	if parts[1] == "" {
		return "", ErrMalformed
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return "", ErrMalformed
	}
	return parts[1], nil
}

func randomSuffix() string {
	var b strings.Builder
	b.Grow(suffixLen)
	for i := 0; i < suffixLen; i++ {
		b.WriteByte(suffixChars[rand.IntN(len(suffixChars))])
	}
	return b.String()
}
