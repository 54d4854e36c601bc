package tracking

import "github.com/Mutueye/qst-tracking-monorepo/internal/events"

// ResolveUserID tags the raw id returned by getUserID with the prefix for kind.
// An empty id (or a nil accessor) resolves to the anonymous identity. Unknown
// kinds fall back to the customer prefix.
func ResolveUserID(kind events.UserIDType, getUserID func() string) events.UserID {
	var raw string
	if getUserID != nil {
		raw = getUserID()
	}
	if raw == "" {
		return events.UserIDAnonymous
	}

	if kind == events.UserIDTypeMember {
		return events.UserID(events.MemberIDPrefix + raw)
	}
	return events.UserID(events.CustomerIDPrefix + raw)
}
