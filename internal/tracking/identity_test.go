package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
)

func TestResolveUserID(t *testing.T) {
	id := func(s string) func() string { return func() string { return s } }

	tests := []struct {
		name string
		kind events.UserIDType
		fn   func() string
		want events.UserID
	}{
		{"customer", events.UserIDTypeCustomer, id("42"), "quc_customer_id:42"},
		{"member", events.UserIDTypeMember, id("7"), "member_id:7"},
		{"anonymous customer", events.UserIDTypeCustomer, id(""), "nologin"},
		{"anonymous member", events.UserIDTypeMember, id(""), "nologin"},
		{"nil accessor", events.UserIDTypeCustomer, nil, "nologin"},
		{"unknown kind", events.UserIDType("GuestId"), id("9"), "quc_customer_id:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResolveUserID(tt.kind, tt.fn))
		})
	}
}

func TestResolveUserID_NotCached(t *testing.T) {
	current := ""
	fn := func() string { return current }

	require.Equal(t, events.UserIDAnonymous, ResolveUserID(events.UserIDTypeCustomer, fn))

	current = "42"
	require.Equal(t, events.UserID("quc_customer_id:42"), ResolveUserID(events.UserIDTypeCustomer, fn))
}
