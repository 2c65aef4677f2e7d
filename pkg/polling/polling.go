package polling

import "time"

// PollInterval is the pause between predicate evaluations in WaitUntil.
const PollInterval = 100 * time.Millisecond

// Clock abstracts time for Timer so tests can step time manually.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses the calling goroutine for the given duration.
	Sleep(d time.Duration)
}

// systemClock reads the real monotonic clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the wall clock used by production timers.
func SystemClock() Clock {
	return systemClock{}
}

// Timer is a restartable deadline timer for polling loops.
type Timer struct {
	clock    Clock
	period   time.Duration
	deadline time.Time
}

// NewTimer creates a timer armed with the given period, measured against
// the system clock.
func NewTimer(period time.Duration) *Timer {
	return NewTimerWithClock(period, systemClock{})
}

// NewTimerWithClock creates a timer armed with the given period, measured
// against the given clock.
func NewTimerWithClock(period time.Duration, clock Clock) *Timer {
	t := &Timer{clock: clock, period: period}
	t.Restart()
	return t
}

// IsExpired returns true once the deadline has passed.
func (t *Timer) IsExpired() bool {
	return t.clock.Now().After(t.deadline)
}

// SetPeriod stores a new period for subsequent restarts. The current
// deadline keeps the period it was armed with.
func (t *Timer) SetPeriod(period time.Duration) {
	t.period = period
}

// Period returns the period used by the next restart.
func (t *Timer) Period() time.Duration {
	return t.period
}

// Restart arms the deadline to one period from now.
func (t *Timer) Restart() {
	t.deadline = t.clock.Now().Add(t.period)
}

// RestartFrom arms the deadline to one period from the given start time.
// A start in the past shortens the wait accordingly.
func (t *Timer) RestartFrom(start time.Time) {
	t.deadline = start.Add(t.period)
}

// Deadline returns the instant the timer expires.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Elapsed returns how much time has passed since the timer was armed.
func (t *Timer) Elapsed() time.Duration {
	return t.clock.Now().Add(t.period).Sub(t.deadline)
}

// Remaining returns the time left until expiry, or zero once expired.
func (t *Timer) Remaining() time.Duration {
	remaining := t.deadline.Sub(t.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WaitUntil restarts the timer and polls pred every PollInterval until it
// reports want or the timer expires. The predicate is evaluated at least
// once, so a timer with a zero period still observes the current state.
// It returns true if pred reported want before expiry. A predicate error
// aborts the wait immediately.
func (t *Timer) WaitUntil(pred func() (bool, error), want bool) (bool, error) {
	t.Restart()
	got, err := pred()
	if err != nil {
		return false, err
	}
	for got != want && !t.IsExpired() {
		t.clock.Sleep(PollInterval)
		got, err = pred()
		if err != nil {
			return false, err
		}
	}
	return got == want, nil
}
