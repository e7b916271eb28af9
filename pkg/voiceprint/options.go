package voiceprint

import (
	"log/slog"
	"time"
)

// OverwritePolicy decides what Enroll does when the speaker id is taken.
type OverwritePolicy int

const (
	// OverwriteReplace replaces the existing record (last write wins).
	OverwriteReplace OverwritePolicy = iota

	// OverwriteReject fails with ErrAlreadyEnrolled.
	OverwriteReject
)

func (p OverwritePolicy) String() string {
	switch p {
	case OverwriteReplace:
		return "replace"
	case OverwriteReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseOverwritePolicy parses "replace" or "reject". Empty means replace.
func ParseOverwritePolicy(s string) (OverwritePolicy, bool) {
	switch s {
	case "", "replace":
		return OverwriteReplace, true
	case "reject":
		return OverwriteReject, true
	}
	return 0, false
}

type options struct {
	threshold float64
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *Metrics
	overwrite OverwritePolicy
	hasher    *Hasher
	now       func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		threshold: DefaultThreshold,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Verifier, Enroller or Identifier.
type Option func(*options)

// WithThreshold sets the decision threshold (default DefaultThreshold).
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

// WithTimeout bounds each load and each extraction step. Zero disables
// the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records operations in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithOverwrite sets the Enroller overwrite policy (default
// OverwriteReplace).
func WithOverwrite(p OverwritePolicy) Option {
	return func(o *options) { o.overwrite = p }
}

// WithHasher sets the Hasher used to label enrolled records. Without one
// records carry no voice label.
func WithHasher(h *Hasher) Option {
	return func(o *options) { o.hasher = h }
}
