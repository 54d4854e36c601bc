package events

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleEvent(guid string) Event {
	return Event{
		UserID:    "quc_customer_id:42",
		URL:       "https://example.com/course/1",
		Type:      CategoryClick,
		GUID:      guid,
		Source:    SourceSaas,
		Platform:  PlatformObe,
		LocalTime: "2023/8/21 15:36:15",
		EventTime: 1692603375000,
		BData:     `{"data":123}`,
	}
}

func TestEncode_WireFormat(t *testing.T) {
	e := sampleEvent("6f1c2a9e-1b2c-4d3e-8f40-0123456789ab")
	e.BData = ""

	payload, err := Encode([]Event{e})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	require.JSONEq(t, `[{
		"uid": "quc_customer_id:42",
		"url": "https://example.com/course/1",
		"type": "click",
		"guid": "6f1c2a9e-1b2c-4d3e-8f40-0123456789ab",
		"source": "saas",
		"platform": "obe",
		"local_time": "2023/8/21 15:36:15",
		"event_time": 1692603375000
	}]`, string(raw))
	require.NotContains(t, string(raw), "bdata")
}

func TestEncode_Nil(t *testing.T) {
	payload, err := Encode(nil)
	require.NoError(t, err)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("[]")), payload)
}

func TestDecode_RoundTrip(t *testing.T) {
	in := []Event{sampleEvent("a"), sampleEvent("b")}
	in[1].URL = "https://example.com/课程?id=1"

	payload, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("%%%")
	require.Error(t, err)

	_, err = Decode(base64.StdEncoding.EncodeToString([]byte("{not json")))
	require.Error(t, err)
}

func TestDedupe(t *testing.T) {
	existing := []Event{sampleEvent("a"), sampleEvent("b")}
	incoming := []Event{sampleEvent("b"), sampleEvent("c"), sampleEvent("c")}

	merged := Dedupe(existing, incoming)
	require.Equal(t, []string{"a", "b", "c"}, IDs(merged))

	again := Dedupe(merged, incoming)
	require.Equal(t, IDs(merged), IDs(again))
}

func TestSplitHalf(t *testing.T) {
	tests := []struct {
		n          int
		first, rem int
	}{
		{2, 1, 1},
		{3, 2, 1},
		{4, 2, 2},
		{7, 4, 3},
	}

	for _, tt := range tests {
		batch := make([]Event, tt.n)
		a, b := SplitHalf(batch)
		require.Len(t, a, tt.first)
		require.Len(t, b, tt.rem)
	}
}

func TestParseHelpers(t *testing.T) {
	c, err := ParseCategory("Click")
	require.NoError(t, err)
	require.Equal(t, CategoryClick, c)
	_, err = ParseCategory("hover")
	require.Error(t, err)

	s, err := ParseSource("LOCAL")
	require.NoError(t, err)
	require.Equal(t, SourceLocal, s)
	_, err = ParseSource("cloud")
	require.Error(t, err)

	for in, want := range map[string]UserIDType{
		"CustomerId": UserIDTypeCustomer,
		"customer":   UserIDTypeCustomer,
		"MemberId":   UserIDTypeMember,
		"member":     UserIDTypeMember,
	} {
		got, err := ParseUserIDType(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err = ParseUserIDType("guest")
	require.Error(t, err)
}
