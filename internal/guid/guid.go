// Package guid generates and validates the identifiers attached to every tracking event.
package guid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidFormat is wrapped by every FormatError.
var ErrInvalidFormat = errors.New("invalid identifier format")

var canonical = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// processStart anchors the monotonic component mixed into generated identifiers.
var processStart = time.Now()

// FormatError reports a string that is not a canonical hex-grouped identifier.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidFormat.Error(), e.Value)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}

// ID is a validated identifier.
type ID struct {
	s string
}

// String returns the identifier in its 8-4-4-4-12 form.
func (id ID) String() string {
	return id.s
}

// IsZero reports whether id was never assigned.
func (id ID) IsZero() bool {
	return id.s == ""
}

// Parse validates s and returns it as an ID.
func Parse(s string) (ID, error) {
	if !canonical.MatchString(s) {
		return ID{}, &FormatError{Value: s}
	}
	return ID{s: strings.ToLower(s)}, nil
}

// NewID returns a freshly generated ID.
func NewID() ID {
	return ID{s: New()}
}

// New returns a version 4 identifier. Each random nibble is offset by the wall
// clock (milliseconds) until it is used up and then by the monotonic clock
// (microseconds since process start), so rapid successive calls diverge even
// when the random source is weak.
func New() string {
	return generate(time.Now())
}

func generate(now time.Time) string {
	random := uuid.New()

	wall := now.UnixMilli()
	mono := now.Sub(processStart).Microseconds()

	var out uuid.UUID
	for i := 0; i < 32; i++ {
		r := int64(nibble(random, i))
		if wall > 0 {
			r = (wall + r) % 16
			wall /= 16
		} else if mono > 0 {
			r = (mono + r) % 16
			mono /= 16
		}
		setNibble(&out, i, byte(r))
	}

	out[6] = (out[6] & 0x0f) | 0x40 // version 4
	out[8] = (out[8] & 0x3f) | 0x80 // RFC 4122 variant

	return out.String()
}

func nibble(u uuid.UUID, i int) byte {
	b := u[i/2]
	if i%2 == 0 {
		return b >> 4
	}
	return b & 0x0f
}

func setNibble(u *uuid.UUID, i int, v byte) {
	if i%2 == 0 {
		u[i/2] = (u[i/2] & 0x0f) | (v << 4)
	} else {
		u[i/2] = (u[i/2] & 0xf0) | (v & 0x0f)
	}
}
