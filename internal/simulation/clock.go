// Package simulation replays a merged event timeline on a virtual clock.
package simulation

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/ukydev/fleet-replay/internal/models"
)

var (
	ErrInvalidSpeed    = errors.New("speed must be a positive number")
	ErrInvalidFraction = errors.New("progress fraction must be a finite number")
)

// PlayState is the playback state of a Clock.
type PlayState string

const (
	Stopped PlayState = "stopped"
	Playing PlayState = "playing"
)

// Clock is the replay state machine: a cursor (current virtual time) over an
// immutable, time-sorted timeline. Everything visible is derived from the
// cursor. Clock is not safe for concurrent use; Session serializes access.
type Clock struct {
	timeline []models.Event
	step     time.Duration

	state   PlayState
	speed   float64
	current time.Time
	// blank hides every event until the next Tick or SkipTo.
	blank bool
}

// NewClock builds a stopped clock over a timeline sorted by timestamp.
// step is the virtual time one Tick advances at speed 1.
func NewClock(timeline []models.Event, step time.Duration) *Clock {
	c := &Clock{
		timeline: timeline,
		step:     step,
		state:    Stopped,
		speed:    1,
	}
	c.Reset()
	return c
}

// Play starts playback. Playing at the end of the timeline is allowed; the
// next Tick clamps and stops again.
func (c *Clock) Play() {
	c.state = Playing
}

// Pause stops playback without moving the cursor.
func (c *Clock) Pause() {
	c.state = Stopped
}

// Reset stops playback, rewinds to the earliest event and clears the visible set.
func (c *Clock) Reset() {
	c.state = Stopped
	c.blank = true
	if earliest, ok := c.Earliest(); ok {
		c.current = earliest
	}
}

// Tick advances the cursor by step × speed while playing. Crossing the last
// event clamps the cursor to it and stops playback. It reports whether the
// clock was playing.
func (c *Clock) Tick() bool {
	if c.state != Playing {
		return false
	}
	latest, ok := c.Latest()
	if !ok {
		c.state = Stopped
		return true
	}

	c.blank = false
	next := c.current.Add(scale(c.step, c.speed))
	if next.After(latest) {
		c.current = latest
		c.state = Stopped
		return true
	}
	c.current = next
	return true
}

// ChangeSpeed sets the speed multiplier used from the next Tick on.
func (c *Clock) ChangeSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return ErrInvalidSpeed
	}
	c.speed = speed
	return nil
}

// SkipTo moves the cursor to earliest + fraction × (latest − earliest).
// Fractions outside [0, 1] extrapolate linearly past either end.
func (c *Clock) SkipTo(fraction float64) error {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return ErrInvalidFraction
	}
	earliest, ok := c.Earliest()
	if !ok {
		return nil
	}
	latest, _ := c.Latest()

	c.current = earliest.Add(scale(latest.Sub(earliest), fraction))
	c.blank = false
	return nil
}

// VisibleEvents returns the timeline prefix with timestamp <= current time.
// The returned slice shares the timeline and must not be modified.
func (c *Clock) VisibleEvents() []models.Event {
	if c.blank || len(c.timeline) == 0 {
		return []models.Event{}
	}
	n := sort.Search(len(c.timeline), func(i int) bool {
		return c.timeline[i].Timestamp.After(c.current)
	})
	return c.timeline[:n:n]
}

// Progress is the elapsed fraction of the timeline span, 0 when the span is empty.
func (c *Clock) Progress() float64 {
	earliest, ok := c.Earliest()
	if !ok {
		return 0
	}
	latest, _ := c.Latest()
	span := latest.Sub(earliest)
	if span <= 0 {
		return 0
	}
	return float64(c.current.Sub(earliest)) / float64(span)
}

// CurrentTime returns the virtual now; ok is false for an empty timeline.
func (c *Clock) CurrentTime() (time.Time, bool) {
	if len(c.timeline) == 0 {
		return time.Time{}, false
	}
	return c.current, true
}

// Earliest returns the timestamp of the first event.
func (c *Clock) Earliest() (time.Time, bool) {
	if len(c.timeline) == 0 {
		return time.Time{}, false
	}
	return c.timeline[0].Timestamp, true
}

// Latest returns the timestamp of the last event.
func (c *Clock) Latest() (time.Time, bool) {
	if len(c.timeline) == 0 {
		return time.Time{}, false
	}
	return c.timeline[len(c.timeline)-1].Timestamp, true
}

func (c *Clock) Speed() float64 { return c.speed }

func (c *Clock) IsPlaying() bool { return c.state == Playing }

// maxOffset keeps scaled durations well inside the int64 range.
const maxOffset = float64(1 << 62)

// scale returns d × f, saturating instead of overflowing.
func scale(d time.Duration, f float64) time.Duration {
	v := math.Round(float64(d) * f)
	return time.Duration(math.Max(-maxOffset, math.Min(v, maxOffset)))
}

// State captures the clock for presentation.
func (c *Clock) State() State {
	st := State{
		State:         c.state,
		IsPlaying:     c.state == Playing,
		Speed:         c.speed,
		Progress:      c.Progress(),
		VisibleEvents: len(c.VisibleEvents()),
		TotalEvents:   len(c.timeline),
	}
	if now, ok := c.CurrentTime(); ok {
		st.CurrentTime = &now
	}
	if earliest, ok := c.Earliest(); ok {
		st.StartTime = &earliest
	}
	if latest, ok := c.Latest(); ok {
		st.EndTime = &latest
	}
	return st
}

// State is the presentation view of a Clock.
type State struct {
	State         PlayState  `json:"state"`
	IsPlaying     bool       `json:"isPlaying"`
	Speed         float64    `json:"speed"`
	CurrentTime   *time.Time `json:"currentTime,omitempty"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	Progress      float64    `json:"progress"`
	VisibleEvents int        `json:"visibleEvents"`
	TotalEvents   int        `json:"totalEvents"`
}
