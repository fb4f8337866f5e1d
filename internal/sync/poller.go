// Package sync runs the background inbox import.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/mailterm/internal/event"
	"github.com/nhle/mailterm/internal/imap"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/store"
)

// SyncState represents the current state of the inbox import.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the state of the last import.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Added    int
	Error    error
}

// Fetcher reads recent messages from a remote mailbox.
type Fetcher interface {
	FetchRecent(ctx context.Context, since time.Time, limit int) ([]model.Message, error)
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// Options configures a Poller.
type Options struct {
	Interval  time.Duration
	SinceDays int
	Limit     int
	Logger    *slog.Logger
}

// Poller periodically imports recent inbox messages into the store and
// reports each run on the event queue.
type Poller struct {
	fetcher Fetcher
	store   store.Importer
	events  event.Sender
	opts    Options
	logger  *slog.Logger

	status    SyncStatus
	triggerCh chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	running   bool
}

// New creates a new Poller.
func New(f Fetcher, s store.Importer, events event.Sender, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 120 * time.Second
	}
	if opts.SinceDays <= 0 {
		opts.SinceDays = 7
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher:   f,
		store:     s,
		events:    events,
		opts:      opts,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine. It fetches immediately and then
// once per interval. Calling Start twice is a no-op; a stopped poller can
// be started again.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.wg.Add(1)
	go p.poll(p.stopCh)
}

// Stop halts the polling goroutine and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Refresh triggers an immediate import.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

// Status returns the state of the last import.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) poll(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	// Do an initial fetch immediately
	p.fetchAndImport()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.fetchAndImport()
		case <-p.triggerCh:
			p.fetchAndImport()
		}
	}
}

// fetchAndImport performs a single fetch, imports the results, and
// reports the outcome on the event queue.
func (p *Poller) fetchAndImport() {
	p.setStatus(SyncRunning, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	since := time.Now().AddDate(0, 0, -p.opts.SinceDays)
	msgs, err := p.fetcher.FetchRecent(ctx, since, p.opts.Limit)
	if err != nil {
		p.fail(err)
		return
	}

	added, err := p.store.ImportMessages(ctx, msgs)
	if err != nil {
		p.fail(fmt.Errorf("importing inbox: %w", err))
		return
	}

	p.setStatus(SyncIdle, added, nil)
	p.logger.Info("inbox synced", "fetched", len(msgs), "added", added)
	p.events.Send(event.InboxSynced{Added: added})
}

func (p *Poller) fail(err error) {
	p.setStatus(SyncError, 0, err)

	if imap.IsAuthError(err) {
		p.logger.Error("inbox authentication failed; run `mailterm setup`", "error", err)
	} else {
		p.logger.Warn("inbox sync failed", "error", err)
	}
	p.events.Send(event.Error{Err: err})
}

func (p *Poller) setStatus(state SyncState, added int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.Added = added
		p.status.LastSync = time.Now()
	}
}
