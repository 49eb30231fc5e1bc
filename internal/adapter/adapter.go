package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"akiyascout/server/internal/governor"
	"akiyascout/server/internal/models"
)

// Error wraps a failure that prevents a source from being iterated at all:
// unreachable portal, blocked client, unparseable index page. It is fatal to
// the job that hit it and is never retried automatically.
type Error struct {
	SourceID string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.SourceID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Stream is a lazy sequence of raw listings. Next returns io.EOF when the
// source is exhausted; any other error aborts the job.
type Stream interface {
	Next(ctx context.Context) (*models.RawListing, error)
	Close() error
}

// Adapter produces raw listing records for one external source. Failure-prone
// and opaque to the rest of the system.
type Adapter interface {
	SourceID() string
	Stream(ctx context.Context, regionCode string) (Stream, error)
}

// Factory builds an adapter from its source configuration. The governor paces
// every outbound request the adapter makes.
type Factory func(src models.Source, gov *governor.Governor, logger *logrus.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register binds a factory to a source id. Usually called from init.
func Register(sourceID string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[sourceID] = factory
}

// New instantiates the adapter registered for the source. Sources without a
// specialized adapter get the generic HTML index adapter.
func New(src models.Source, gov *governor.Governor, logger *logrus.Logger) (Adapter, error) {
	if src.BaseURL == "" {
		return nil, fmt.Errorf("source %s has no base URL", src.ID)
	}
	registryMu.RLock()
	factory, ok := registry[src.ID]
	registryMu.RUnlock()
	if !ok {
		return NewHTML(src, gov, logger), nil
	}
	return factory(src, gov, logger), nil
}

// Registered lists the known source ids, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
