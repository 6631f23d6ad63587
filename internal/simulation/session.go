package simulation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/eventlog"
	"github.com/ukydev/fleet-replay/internal/metrics"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/zoobzio/clockz"
)

// Snapshot is everything the presentation layer needs at one virtual instant.
type Snapshot struct {
	State State                `json:"simulation"`
	Trips []models.TripMetrics `json:"trips"`
	Fleet models.FleetMetrics  `json:"fleet"`
}

// Trip returns the metrics of one trip in the snapshot.
func (s Snapshot) Trip(tripID string) (models.TripMetrics, bool) {
	for _, m := range s.Trips {
		if m.TripID == tripID {
			return m, true
		}
	}
	return models.TripMetrics{}, false
}

// Sink receives snapshots from the session's publisher goroutine. A slow
// sink may miss intermediate snapshots but always receives the latest one.
type Sink interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// Options configures a Session.
type Options struct {
	// TickInterval is the real time between ticks while playing.
	TickInterval time.Duration
	// TickStep is the virtual time one tick advances at speed 1.
	TickStep time.Duration
	// Speed is the initial speed multiplier.
	Speed float64
	// Clock drives the ticker. Defaults to clockz.RealClock.
	Clock clockz.Clock
	Sinks []Sink
}

// Session owns one replay: the trips, their clock and the ticker. Every
// mutation is serialized through the session mutex. Sinks run outside it.
type Session struct {
	trips    []*models.Trip
	interval time.Duration
	timer    clockz.Clock
	sinks    []Sink

	// pending holds at most one unpublished snapshot.
	pending       chan Snapshot
	publisherDone chan struct{}

	mu    sync.Mutex
	clock *Clock
	// generation invalidates ticks from a cancelled ticker.
	generation uint64
	cancelTick context.CancelFunc
	closed     bool
}

// NewSession builds a stopped session over trips.
func NewSession(trips []*models.Trip, opts Options) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	if opts.TickStep <= 0 {
		opts.TickStep = opts.TickInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}

	clock := NewClock(eventlog.MergeAll(trips), opts.TickStep)
	if opts.Speed > 0 {
		if err := clock.ChangeSpeed(opts.Speed); err != nil {
			log.WithError(err).WithField("speed", opts.Speed).Warn("Ignoring initial speed")
		}
	}

	s := &Session{
		trips:    trips,
		interval: opts.TickInterval,
		timer:    opts.Clock,
		sinks:    opts.Sinks,
		clock:    clock,
	}
	if len(s.sinks) > 0 {
		s.pending = make(chan Snapshot, 1)
		s.publisherDone = make(chan struct{})
		go s.runPublisher()
	}
	return s
}

// Trips returns the loaded trips.
func (s *Session) Trips() []*models.Trip {
	return s.trips
}

// Play starts playback and the ticker.
func (s *Session) Play() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshotLocked()
	}
	s.clock.Play()
	if s.cancelTick == nil {
		s.startTickerLocked()
	}
	log.WithField("speed", s.clock.Speed()).Info("Playback started")
	return s.publishLocked()
}

// Pause stops playback and the ticker.
func (s *Session) Pause() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock.Pause()
	s.stopTickerLocked()
	log.Info("Playback paused")
	return s.publishLocked()
}

// Reset stops playback and rewinds to a blank slate.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock.Reset()
	s.stopTickerLocked()
	log.Info("Playback reset")
	return s.publishLocked()
}

// ChangeSpeed updates the speed multiplier.
func (s *Session) ChangeSpeed(speed float64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clock.ChangeSpeed(speed); err != nil {
		return Snapshot{}, err
	}
	log.WithField("speed", speed).Info("Playback speed changed")
	return s.publishLocked(), nil
}

// SkipTo moves the cursor to a fraction of the timeline.
func (s *Session) SkipTo(fraction float64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clock.SkipTo(fraction); err != nil {
		return Snapshot{}, err
	}
	log.WithField("progress", fraction).Debug("Skipped")
	return s.publishLocked(), nil
}

// Tick advances the clock once, as the ticker does.
func (s *Session) Tick() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked()
}

// Snapshot derives the current snapshot without changing anything.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops the ticker for good and waits for the publisher to hand the
// last snapshot to the sinks. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.clock.Pause()
	s.stopTickerLocked()
	if s.pending != nil {
		close(s.pending)
	}
	s.mu.Unlock()

	if s.publisherDone != nil {
		<-s.publisherDone
	}
}

func (s *Session) tickLocked() Snapshot {
	wasPlaying := s.clock.Tick()
	if wasPlaying && !s.clock.IsPlaying() {
		s.stopTickerLocked()
		log.Info("Reached end of timeline, playback paused")
	}
	return s.publishLocked()
}

func (s *Session) startTickerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.generation++
	s.cancelTick = cancel
	go s.runTicker(ctx, s.generation)
}

func (s *Session) stopTickerLocked() {
	if s.cancelTick == nil {
		return
	}
	s.cancelTick()
	s.cancelTick = nil
	s.generation++
}

func (s *Session) runTicker(ctx context.Context, gen uint64) {
	next := s.timer.After(s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-next:
			// Arm the next tick before handling this one so a tick is always pending.
			next = s.timer.After(s.interval)
			s.mu.Lock()
			if gen != s.generation {
				s.mu.Unlock()
				return
			}
			s.tickLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	visible := s.clock.VisibleEvents()
	trips := metrics.CalculateAll(s.trips, visible)
	return Snapshot{
		State: s.clock.State(),
		Trips: trips,
		Fleet: metrics.Aggregate(trips),
	}
}

// publishLocked queues the current snapshot, replacing any snapshot the
// publisher has not picked up yet. It never waits on a sink.
func (s *Session) publishLocked() Snapshot {
	snap := s.snapshotLocked()
	if s.pending == nil || s.closed {
		return snap
	}
	select {
	case s.pending <- snap:
	default:
		// Senders hold s.mu, so the slot stays free once drained.
		select {
		case <-s.pending:
		default:
		}
		s.pending <- snap
	}
	return snap
}

func (s *Session) runPublisher() {
	defer close(s.publisherDone)
	for snap := range s.pending {
		for _, sink := range s.sinks {
			if err := sink.Publish(context.Background(), snap); err != nil {
				log.WithError(err).Warn("Failed to publish snapshot")
			}
		}
	}
}
