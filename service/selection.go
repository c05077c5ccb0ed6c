package service

import (
	"math/rand/v2"
	"sync"

	"casebox/models"
)

// RandomSource yields uniform floats in [0, 1)
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64()
}

// NewRandomSource returns a source backed by the runtime's global generator
func NewRandomSource() RandomSource {
	return globalSource{}
}

// lockedSource serializes access to a seeded generator
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NewSeededSource returns a deterministic source, safe for concurrent use
func NewSeededSource(seed uint64) RandomSource {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Select walks items in stored order and returns the first positive-weight
// item whose cumulative weight reaches r. Zero-weight items are skipped even
// when r is exactly 0, where a plain cumulative >= r walk would return a
// leading zero-weight item. When rounding leaves r above every cumulative
// sum the last item is returned.
func Select(items []*models.CaseItem, r float64) (*models.CaseItem, error) {
	if len(items) == 0 {
		return nil, ErrCaseEmpty
	}

	var cumulative float64
	for _, item := range items {
		if item.Probability <= 0 {
			continue
		}
		cumulative += item.Probability
		if cumulative >= r {
			return item, nil
		}
	}

	return items[len(items)-1], nil
}

// Draw picks one item with probability proportional to its weight
func Draw(items []*models.CaseItem, rng RandomSource) (*models.CaseItem, error) {
	total := models.TotalWeight(items)
	if len(items) == 0 || total <= 0 {
		return nil, ErrCaseEmpty
	}
	return Select(items, rng.Float64()*total)
}
