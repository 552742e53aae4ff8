package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/types"
	"github.com/vocdoni/sealedvote/voting"
)

// DefaultFinalizeInterval is the default polling interval of the finalizer.
const DefaultFinalizeInterval = 30 * time.Second

// Finalizer is a background service that finalizes active proposals once
// their buffer window is over.
type Finalizer struct {
	engine   *voting.Engine
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewFinalizer creates a finalizer polling engine every interval.
func NewFinalizer(engine *voting.Engine, interval time.Duration) *Finalizer {
	if interval <= 0 {
		interval = DefaultFinalizeInterval
	}
	return &Finalizer{engine: engine, interval: interval}
}

// Start begins polling. It returns an error if the service is already
// running.
func (f *Finalizer) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return fmt.Errorf("service already running")
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})
	go f.run(ctx, f.done)
	log.Infow("finalizer started", "interval", f.interval.String())
	return nil
}

// Stop halts the service and waits for the polling loop to return.
func (f *Finalizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		<-f.done
		f.cancel = nil
	}
}

func (f *Finalizer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := f.engine.Clock().Ticker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.FinalizeDue(ctx)
		}
	}
}

// FinalizeDue finalizes every due proposal and returns how many were
// finalized.
func (f *Finalizer) FinalizeDue(ctx context.Context) int {
	due, err := f.engine.Due()
	if err != nil {
		log.Warnw("could not list due proposals", "error", err.Error())
		return 0
	}
	count := 0
	for _, pid := range due {
		if ctx.Err() != nil {
			return count
		}
		if _, err := f.engine.Finalize(ctx, pid); err != nil {
			// someone else finalized or cancelled it meanwhile
			if errors.Is(err, types.ErrAlreadyFinalized) || errors.Is(err, types.ErrInvalidState) {
				log.Debugw("proposal no longer due", "proposalId", pid.String(), "error", err.Error())
				continue
			}
			log.Warnw("failed to finalize proposal", "proposalId", pid.String(), "error", err.Error())
			continue
		}
		count++
	}
	return count
}
