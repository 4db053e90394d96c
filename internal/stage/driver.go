package stage

import (
	"sync"
	"time"
)

// DefaultInterval is the delay between cosmetic stage advances.
const DefaultInterval = 1100 * time.Millisecond

// progression is the order the driver walks. It stops on the last entry.
var progression = []Stage{Uploading, Parsing, Structuring, Scoring}

// Driver advances the visible stage on a timer while a job is polled. It is
// purely cosmetic and never reflects backend progress. It never writes Idle,
// Ready or Locked.
type Driver struct {
	interval time.Duration
	set      func(Stage)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewDriver creates a Driver that reports each stage through set.
func NewDriver(interval time.Duration, set func(Stage)) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{interval: interval, set: set}
}

// Start resets to Uploading and schedules the remaining advances. A schedule
// already in progress is cancelled first.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop, d.done = stop, done

	d.set(progression[0])
	go d.advance(stop, done)
}

// Stop cancels pending advances. When Stop returns no further stage is written.
// Calling Stop when not running is a no-op.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Running reports whether advances are still scheduled.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done == nil {
		return false
	}
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

func (d *Driver) stopLocked() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil
}

func (d *Driver) advance(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for _, next := range progression[1:] {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// stop and a tick can be ready together; stop wins.
		select {
		case <-stop:
			return
		default:
		}
		d.set(next)
	}
}
