package repository

import (
	"time"

	"github.com/noah-isme/sma-course-roster/internal/aggregate"
)

// QueryObserver receives query timings, typically the metrics service.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// Option customises a repository.
type Option func(*options)

type options struct {
	collator *aggregate.Collator
	observer QueryObserver
}

// WithCollator sets the collator used when sorting in process.
func WithCollator(c *aggregate.Collator) Option {
	return func(o *options) { o.collator = c }
}

// WithQueryObserver reports the duration of every query to observer.
func WithQueryObserver(observer QueryObserver) Option {
	return func(o *options) { o.observer = observer }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.collator == nil {
		o.collator = aggregate.ByteOrder()
	}
	return o
}

func (o options) observe(label string, start time.Time) {
	if o.observer != nil {
		o.observer.ObserveDBQuery(label, time.Since(start))
	}
}
