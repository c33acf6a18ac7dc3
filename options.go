package reactor

// Option configures a [Reactor] at construction time via [New].
type Option func(*options)

type options struct {
	clock       Clock
	sleeper     Sleeper
	multiplexer Multiplexer
	logger      *reactorLogger
}

func resolveOptions(opts []Option) *options {
	o := &options{
		clock:       systemClock{},
		sleeper:     systemSleeper{},
		multiplexer: defaultMultiplexer(),
		logger:      newDefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithClock overrides the [Clock] collaborator. Tests use this to
// substitute a fake clock for deterministic timer arithmetic.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSleeper overrides the [Sleeper] collaborator.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// WithMultiplexer overrides the [Multiplexer] collaborator. Hosts with
// many concurrent streams should supply an epoll/kqueue-backed
// implementation; the built-in [SelectMultiplexer] is select(2)-based.
func WithMultiplexer(m Multiplexer) Option {
	return func(o *options) { o.multiplexer = m }
}

// WithLogger overrides the structured logger used for tick, timer, and
// watcher lifecycle events. The default writes JSON via logiface/stumpy
// to os.Stderr.
func WithLogger(l *reactorLogger) Option {
	return func(o *options) { o.logger = l }
}
