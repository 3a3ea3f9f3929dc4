// Package media defines the core timestamped data model that flows through
// the playback pipeline: wall-clock timestamps, media types, and the
// Packet/Frame/Block shapes that move from container through decoder to
// renderer.
package media

import (
	"math"
	"time"
)

// Timestamp is a signed wall-clock duration with nanosecond resolution,
// relative to a session-defined zero point. Negative values are valid
// (e.g. during reverse seek arithmetic); Unset is a sentinel meaning
// "force the next render regardless of equality".
type Timestamp time.Duration

// Unset forces the next matching block through a renderer even if its
// start time equals the previously rendered one. See InvalidateRenderer
// in package pipeline.
const Unset Timestamp = Timestamp(math.MinInt64)

// IsUnset reports whether t is the Unset sentinel.
func (t Timestamp) IsUnset() bool { return t == Unset }

// Add returns t+d.
func (t Timestamp) Add(d Timestamp) Timestamp { return t + d }

// Sub returns t-d.
func (t Timestamp) Sub(d Timestamp) Timestamp { return t - d }

// Duration converts t to a time.Duration for use with stdlib timers.
func (t Timestamp) Duration() time.Duration { return time.Duration(t) }

// FromDuration wraps a time.Duration as a Timestamp.
func FromDuration(d time.Duration) Timestamp { return Timestamp(d) }
