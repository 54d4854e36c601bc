// Package beacon builds report URLs and fires them at the collection endpoint.
package beacon

import (
	"strings"
	"unicode/utf8"

	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
)

const (
	// MaxURLLength is the byte ceiling for a report URL. Browsers, proxies and
	// servers disagree on limits above roughly 2000 characters.
	MaxURLLength = 2048

	// DefaultQueryName is the query parameter carrying the encoded batch.
	DefaultQueryName = "payload"
)

// ByteLength counts s as UTF-8, one code point at a time. Invalid bytes are
// counted as the three-byte replacement character they decode to.
func ByteLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf8.RuneLen(r)
	}
	return n
}

// BuildURL encodes batch into a query parameter of endpoint. It returns "" when
// the URL reaches MaxURLLength and the batch can still be split; a single event
// is always returned as-is.
func BuildURL(endpoint string, batch []events.Event, queryName string) (string, error) {
	if queryName == "" {
		queryName = DefaultQueryName
	}

	payload, err := events.Encode(batch)
	if err != nil {
		return "", err
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	u := endpoint + sep + queryName + "=" + payload
	if ByteLength(u) >= MaxURLLength && len(batch) > 1 {
		return "", nil
	}
	return u, nil
}
