// Package location abstracts the device's positioning service.
package location

import (
	"context"
	"errors"
	"sync"
)

// Accuracy selects the positioning tier to request.
type Accuracy int

const (
	AccuracyHigh Accuracy = iota
	AccuracyBalanced
)

// ErrNoFix is returned when the provider has no position to offer.
var ErrNoFix = errors.New("no location fix available")

// Position is one fix. Mocked is set when the OS reports that a
// fake-location utility produced it.
type Position struct {
	Lat       float64
	Lon       float64
	AccuracyM float64
	Provider  string
	Mocked    bool
}

// Provider is the device positioning service. Current may block until a
// fix arrives or ctx ends; LastKnown returns immediately with the most
// recent cached fix, if any.
type Provider interface {
	Current(ctx context.Context, accuracy Accuracy) (Position, error)
	LastKnown(ctx context.Context) (Position, error)
}

// StaticProvider serves a fixed position. Useful for kiosks with a known
// placement and for tests.
type StaticProvider struct {
	mu       sync.Mutex
	pos      Position
	hasFix   bool
	failWith error
}

func NewStaticProvider(pos Position) *StaticProvider {
	return &StaticProvider{pos: pos, hasFix: true}
}

// NewEmptyProvider returns a provider with no fix at all.
func NewEmptyProvider() *StaticProvider {
	return &StaticProvider{}
}

func (p *StaticProvider) SetPosition(pos Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
	p.hasFix = true
}

// FailWith makes every call return err until cleared with SetPosition.
func (p *StaticProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
	p.hasFix = false
}

func (p *StaticProvider) Current(ctx context.Context, accuracy Accuracy) (Position, error) {
	return p.LastKnown(ctx)
}

func (p *StaticProvider) LastKnown(ctx context.Context) (Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return Position{}, p.failWith
	}
	if !p.hasFix {
		return Position{}, ErrNoFix
	}
	return p.pos, nil
}
