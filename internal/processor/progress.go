package processor

import (
	"math"
	"sync/atomic"
)

// Progress is a shared fraction in [0, 1] advanced by concurrent workers.
// It never decreases.
type Progress struct {
	bits atomic.Uint64
	step float64
}

// NewProgress returns a Progress that reaches 1 after total calls to Add.
func NewProgress(total int) *Progress {
	p := &Progress{}
	if total > 0 {
		p.step = 1 / float64(total)
	}
	return p
}

// Add advances the fraction by one file and returns the new value.
func (p *Progress) Add() float64 {
	for {
		old := p.bits.Load()
		next := math.Min(math.Float64frombits(old)+p.step, 1)
		if p.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// Complete pins the fraction to exactly 1, absorbing float drift.
func (p *Progress) Complete() {
	p.bits.Store(math.Float64bits(1))
}

func (p *Progress) Fraction() float64 {
	return math.Float64frombits(p.bits.Load())
}
