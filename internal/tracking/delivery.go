package tracking

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Mutueye/qst-tracking-monorepo/internal/beacon"
	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
	"github.com/Mutueye/qst-tracking-monorepo/internal/metrics"
)

// reportBatch sends batch as one beacon, halving it until every URL fits
// under beacon.MaxURLLength. A single event is sent whatever its size.
func (m *Manager) reportBatch(s Settings, batch []events.Event, onSuccess, onError Callback) {
	u, err := beacon.BuildURL(s.Endpoint, batch, s.QueryName)
	if err != nil {
		log.Error().Err(err).Int("events", len(batch)).Msg("Failed to build report url")
		if onError != nil {
			onError(batch, beacon.Result{Err: err})
		}
		return
	}

	if u == "" {
		left, right := events.SplitHalf(batch)
		metrics.RecordSplit()
		log.Debug().
			Int("events", len(batch)).
			Int("left", len(left)).
			Int("right", len(right)).
			Msg("Report url too long, splitting batch")

		m.reportBatch(s, left, onSuccess, onError)
		m.reportBatch(s, right, onSuccess, onError)
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.deliver(s, batch, u, onSuccess, onError)
	}()
}

// deliver runs the retry chain for one URL. Attempts are numbered from zero;
// a failure is retried while online and attempt < RetryLimit, after which
// the events go to the durable queue. Every success flushes that queue.
func (m *Manager) deliver(s Settings, batch []events.Event, u string, onSuccess, onError Callback) {
	for attempt := 0; ; attempt++ {
		if m.ctx.Err() != nil {
			m.persist(batch, "manager closed")
			return
		}

		metrics.IncrementInFlight()
		// Close stops retry waits only; a beacon already on the wire finishes.
		res := m.transport.Send(context.WithoutCancel(m.ctx), u)
		metrics.DecrementInFlight()
		metrics.RecordDelivery(res.OK(), len(batch), res.Duration)

		if res.OK() {
			log.Debug().
				Int("events", len(batch)).
				Int("attempt", attempt).
				Int("status", res.StatusCode).
				Dur("duration", res.Duration).
				Msg("Events delivered")

			if onSuccess != nil {
				onSuccess(batch, res)
			}
			if m.ctx.Err() == nil {
				m.FlushPersisted(nil, nil)
			}
			return
		}

		log.Warn().
			Err(res.Err).
			Int("events", len(batch)).
			Int("attempt", attempt).
			Int("status", res.StatusCode).
			Msg("Event delivery failed")

		if onError != nil {
			onError(batch, res)
		}

		if !s.online() {
			m.persist(batch, "offline")
			return
		}
		if attempt >= s.RetryLimit {
			m.persist(batch, "retries exhausted")
			return
		}

		delay := s.retryDelay(attempt)
		metrics.RecordRetry()
		log.Debug().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Scheduling delivery retry")

		if !m.sleep(delay) {
			m.persist(batch, "manager closed")
			return
		}
	}
}

// sleep waits for d and reports false when the manager was closed first.
func (m *Manager) sleep(d time.Duration) bool {
	if d <= 0 {
		return m.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-m.ctx.Done():
		return false
	}
}

func (m *Manager) persist(batch []events.Event, reason string) {
	ctx := context.Background()

	added, err := m.queue.Enqueue(ctx, batch)
	if err != nil {
		log.Error().Err(err).Int("events", len(batch)).Str("reason", reason).Msg("Failed to persist events")
		return
	}
	metrics.RecordPersisted(added)

	if n, err := m.queue.Len(ctx); err == nil {
		metrics.SetQueueDepth(n)
	}

	log.Info().
		Int("events", len(batch)).
		Int("added", added).
		Str("reason", reason).
		Msg("Events persisted for later delivery")
}

func (m *Manager) flush(s Settings, onSuccess, onError Callback) {
	snapshot, err := m.queue.Drain(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read persisted events")
		return
	}
	metrics.SetQueueDepth(0)
	if len(snapshot) == 0 {
		return
	}
	metrics.RecordDrained(len(snapshot))

	log.Info().Int("events", len(snapshot)).Msg("Flushing persisted events")
	m.reportBatch(s, snapshot, onSuccess, onError)
}
