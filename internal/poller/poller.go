// Package poller keeps the latest controller status in memory.
//
// The snapshot is a cache of the last poll response, overwritten wholesale
// on every completed poll. Consumers read it without ever triggering a
// controller round-trip.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/resinportal/gateway/internal/controller"
)

// Snapshot is the last known controller status plus reachability.
type Snapshot struct {
	Status    controller.Status `json:"status"`
	Reachable bool              `json:"reachable"`
	LastError string            `json:"last_error,omitempty"`
	LastSeen  time.Time         `json:"last_seen"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Poller polls the controller status endpoint on a fixed interval.
type Poller struct {
	client   *controller.Client
	interval time.Duration

	mu   sync.Mutex
	snap Snapshot
	subs []chan Snapshot

	done    chan struct{}
	refresh chan struct{}
}

// New creates a poller. Call Start to begin polling.
func New(client *controller.Client, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		interval: interval,
		done:     make(chan struct{}),
		refresh:  make(chan struct{}, 1),
	}
}

// Start begins the polling loop.
func (p *Poller) Start() {
	go p.loop()
}

// Stop stops the polling loop.
func (p *Poller) Stop() {
	close(p.done)
}

// Snapshot returns the last poll result.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Subscribe returns a channel that receives every new snapshot. Slow
// subscribers miss snapshots rather than blocking the poll loop.
func (p *Poller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 4)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// RefreshNow requests an immediate poll outside the ticker cadence.
func (p *Poller) RefreshNow() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func (p *Poller) loop() {
	// Poll immediately on start
	p.poll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.poll()
		case <-p.refresh:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	st, err := p.client.Status(context.Background())
	now := time.Now()

	p.mu.Lock()
	p.snap.FetchedAt = now
	if err != nil {
		p.snap.Reachable = false
		p.snap.LastError = err.Error()
		// Keep the last good status on display; reachability tells the
		// dashboard it is stale.
	} else {
		p.snap.Status = *st
		p.snap.Reachable = true
		p.snap.LastError = ""
		p.snap.LastSeen = now
	}
	snap := p.snap
	subs := p.subs
	p.mu.Unlock()

	if err != nil {
		log.Printf("Status poll failed: %v", err)
	}

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
