package events

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Marshal serializes a batch as a compact JSON array. A nil batch encodes as "[]".
// HTML characters are left unescaped so URLs in the payload keep their byte length.
func Marshal(batch []Event) ([]byte, error) {
	if batch == nil {
		batch = []Event{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(batch); err != nil {
		return nil, fmt.Errorf("marshaling events: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal parses a JSON array of events.
func Unmarshal(data []byte) ([]Event, error) {
	var batch []Event
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("unmarshaling events: %w", err)
	}
	return batch, nil
}

// Encode returns the transport form of a batch: standard, padded base64 of its JSON array.
func Encode(batch []Event) (string, error) {
	data, err := Marshal(batch)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode.
func Decode(payload string) ([]Event, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return Unmarshal(data)
}

// IDs returns the guid of every event in order.
func IDs(batch []Event) []string {
	ids := make([]string, len(batch))
	for i, e := range batch {
		ids[i] = e.GUID
	}
	return ids
}

// Dedupe appends to existing every incoming event whose guid is not present yet.
// Order is preserved and the first occurrence of a guid wins.
func Dedupe(existing, incoming []Event) []Event {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]Event, 0, len(existing)+len(incoming))

	for _, e := range existing {
		if _, ok := seen[e.GUID]; ok {
			continue
		}
		seen[e.GUID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range incoming {
		if _, ok := seen[e.GUID]; ok {
			continue
		}
		seen[e.GUID] = struct{}{}
		merged = append(merged, e)
	}

	return merged
}

// SplitHalf cuts a batch in two; the first half gets the extra event when the length is odd.
func SplitHalf(batch []Event) ([]Event, []Event) {
	half := (len(batch) + 1) / 2
	return batch[:half], batch[half:]
}
