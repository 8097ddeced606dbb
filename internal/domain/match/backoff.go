package match

import "time"

// Backoff tracks the delay applied after consecutive failed fetches.
//
// Seconds doubles on every failure up to a cap and drops back to 1 on any
// successful contact, so a broken source is polled at most once per cap while
// a recovered one is polled at full speed immediately.
type Backoff struct {
	Seconds  int       `json:"seconds"`
	ResumeAt time.Time `json:"resume_at"`
}

// NewBackoff returns a backoff at its initial one second delay.
func NewBackoff() Backoff {
	return Backoff{Seconds: 1}
}

// OnSuccess resets the delay.
func (b *Backoff) OnSuccess() {
	b.Seconds = 1
}

// OnFailure grows the delay, capped at maxSeconds, and moves the resume deadline.
func (b *Backoff) OnFailure(now time.Time, maxSeconds int) {
	if b.Seconds < 1 {
		b.Seconds = 1
	}
	next := b.Seconds * 2
	if next > maxSeconds {
		next = maxSeconds
	}
	b.Seconds = next
	b.ResumeAt = now.Add(time.Duration(b.Seconds) * time.Second)
}

// DueToResume reports whether the resume deadline has been reached.
func (b Backoff) DueToResume(now time.Time) bool {
	return !now.Before(b.ResumeAt)
}

// Delay returns the current delay as a duration.
func (b Backoff) Delay() time.Duration {
	return time.Duration(b.Seconds) * time.Second
}
