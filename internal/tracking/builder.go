package tracking

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
	"github.com/Mutueye/qst-tracking-monorepo/internal/guid"
	"github.com/Mutueye/qst-tracking-monorepo/internal/pagectx"
)

// CreateEvent fills in everything the caller does not supply: a fresh guid,
// the page location, the resolved identity, the source and both timestamps.
func (m *Manager) CreateEvent(ctx context.Context, params events.Params) (events.Event, error) {
	s, ok := m.snapshot()
	if !ok {
		log.Error().Err(ErrNotInitialized).Str("type", string(params.Type)).Msg("Cannot create event")
		return events.Event{}, ErrNotInitialized
	}

	return buildEvent(ctx, s, params), nil
}

func buildEvent(ctx context.Context, s Settings, params events.Params) events.Event {
	location, ok := pagectx.Location(ctx)
	if !ok {
		location = s.location()
	}

	now := s.Clock()
	e := events.Event{
		UserID:    ResolveUserID(s.UserIDType, s.UserIDFunc),
		URL:       location,
		Type:      params.Type,
		GUID:      guid.NewID().String(),
		Source:    s.Source,
		Platform:  params.Platform,
		LocalTime: now.Format(s.TimeLayout),
		EventTime: now.UnixMilli(),
		BData:     params.BData,
	}

	log.Debug().
		Str("guid", e.GUID).
		Str("type", string(e.Type)).
		Str("platform", string(e.Platform)).
		Str("request_id", pagectx.RequestID(ctx)).
		Msg("Event created")

	return e
}
