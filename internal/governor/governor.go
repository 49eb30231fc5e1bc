package governor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Governor enforces per-source request pacing: a minimum delay between
// consecutive requests to a source and a cap on in-flight requests. State is
// in-memory only; a brief burst after restart is accepted.
type Governor struct {
	mu      sync.Mutex
	sources map[string]*sourceState
	logger  *logrus.Logger
}

type sourceState struct {
	minDelay    time.Duration
	sem         chan struct{}
	mu          sync.Mutex
	lastRequest time.Time
}

func New(logger *logrus.Logger) *Governor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Governor{
		sources: make(map[string]*sourceState),
		logger:  logger,
	}
}

// Configure sets the pacing for one source. Unconfigured sources default to
// no delay and a single in-flight request.
func (g *Governor) Configure(sourceID string, minDelay time.Duration, maxInFlight int) {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sources[sourceID] = &sourceState{
		minDelay: minDelay,
		sem:      make(chan struct{}, maxInFlight),
	}
}

func (g *Governor) state(sourceID string) *sourceState {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sources[sourceID]
	if !ok {
		s = &sourceState{sem: make(chan struct{}, 1)}
		g.sources[sourceID] = s
	}
	return s
}

// Acquire blocks until the source has a free in-flight slot and the minimum
// delay since its previous request has elapsed. The returned release handle
// must be called exactly once when the request completes; calling it again
// is a no-op.
func (g *Governor) Acquire(ctx context.Context, sourceID string) (func(), error) {
	s := g.state(sourceID)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() { <-s.sem })
	}

	// Holding the pacing lock while waiting serializes spacing across
	// concurrent acquirers of the same source.
	s.mu.Lock()
	wait := s.minDelay - time.Since(s.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.mu.Unlock()
			release()
			return nil, ctx.Err()
		}
	}
	s.lastRequest = time.Now()
	s.mu.Unlock()

	return release, nil
}
