package hashcache

type Option func(o *storeOptions)

type storeOptions struct {
	reset bool
}

// WithReset discards every persisted entry before the run; digests
// computed during the run are still stored.
func WithReset() Option {
	return func(o *storeOptions) {
		o.reset = true
	}
}
