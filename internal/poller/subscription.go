package poller

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the reference poll period.
const DefaultInterval = 3 * time.Second

// ErrActive is returned by Start when a subscription is already running.
var ErrActive = errors.New("poller: subscription already active")

// Subscription fires a callback at a fixed interval for one room at a time.
type Subscription struct {
	interval time.Duration
	log      *zerolog.Logger

	mu   sync.Mutex
	room string
	stop chan struct{}
	done chan struct{}
}

// New creates an inactive subscription.
func New(interval time.Duration, logger *zerolog.Logger) *Subscription {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Subscription{interval: interval, log: logger}
}

// Start begins ticking for room. The first tick fires one full interval after
// Start; the caller performs its own immediate fetch. onTick runs on the
// subscription goroutine and must not block or call Stop.
func (s *Subscription) Start(room string, onTick func(room string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return ErrActive
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.room = room
	s.stop = stop
	s.done = done

	go s.loop(room, onTick, stop, done)
	s.log.Debug().Str("room", room).Dur("interval", s.interval).Msg("polling started")
	return nil
}

func (s *Subscription) loop(room string, onTick func(string), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// stop and tick may be ready together
			select {
			case <-stop:
				return
			default:
			}
			onTick(room)
		}
	}
}

// Stop ends the subscription. It is a no-op when inactive and returns only
// after the last tick callback has finished.
func (s *Subscription) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done

	s.log.Debug().Str("room", s.room).Msg("polling stopped")
	s.room = ""
	s.stop = nil
	s.done = nil
}

// Active reports whether ticks are being delivered.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Room returns the room of the active subscription, or "".
func (s *Subscription) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}
