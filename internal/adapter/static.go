package adapter

import (
	"context"
	"io"

	"akiyascout/server/internal/models"
)

// StaticAdapter serves a fixed set of listings per region from memory. Used
// in tests and as a stand-in while a portal adapter is under repair.
type StaticAdapter struct {
	sourceID string
	byRegion map[string][]models.RawListing
	startErr error
}

func NewStatic(sourceID string, byRegion map[string][]models.RawListing) *StaticAdapter {
	return &StaticAdapter{sourceID: sourceID, byRegion: byRegion}
}

// FailWith makes every Stream call fail, simulating an unreachable source.
func (a *StaticAdapter) FailWith(err error) *StaticAdapter {
	a.startErr = err
	return a
}

func (a *StaticAdapter) SourceID() string {
	return a.sourceID
}

func (a *StaticAdapter) Stream(ctx context.Context, regionCode string) (Stream, error) {
	if a.startErr != nil {
		return nil, &Error{SourceID: a.sourceID, Err: a.startErr}
	}
	return &sliceStream{items: a.byRegion[regionCode]}, nil
}

type sliceStream struct {
	items []models.RawListing
	pos   int
}

func (s *sliceStream) Next(ctx context.Context) (*models.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.items) {
		return nil, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return &item, nil
}

func (s *sliceStream) Close() error {
	return nil
}
