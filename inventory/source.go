// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
)

// Source returns the finite set of listings matching a query or fails with a
// *TransportError or a *ParseError.
type Source interface {
	Query(ctx context.Context, q *Query) ([]*Listing, error)
}

// StaticSource serves a fixed set of listings. It is used for dry runs and
// tests.
type StaticSource struct {
	mu sync.Mutex

	listings []*Listing

	err error

	numQueries int
}

func NewStaticSource(listings ...*Listing) *StaticSource {
	return &StaticSource{listings: listings}
}

// SetListings replaces the listings returned by future queries.
func (s *StaticSource) SetListings(listings ...*Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = listings
}

// SetError makes future queries fail with the input error. A nil error
// restores normal behavior.
func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// NumQueries returns the number of queries received so far.
func (s *StaticSource) NumQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numQueries
}

func (s *StaticSource) Query(ctx context.Context, q *Query) ([]*Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.numQueries++
	if s.err != nil {
		return nil, s.err
	}
	return slices.Clone(s.listings), nil
}

// FileSource serves listings from a saved inventory api response. File is
// re-read on every query so it can be edited while a run is active.
type FileSource struct {
	Path string
}

func (s *FileSource) Query(ctx context.Context, q *Query) ([]*Listing, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &TransportError{URL: "file://" + s.Path, Err: err}
	}
	listings, err := ParseResponse(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse file %q: %w", s.Path, err)
	}
	if q != nil && q.Count > 0 && len(listings) > q.Count {
		listings = listings[:q.Count]
	}
	return listings, nil
}
