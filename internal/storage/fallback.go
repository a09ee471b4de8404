package storage

import (
	"context"
	"errors"
	"log"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Fallback serves from a primary store until its first failure and from the
// secondary store for the rest of the process. Every blob that passes through
// the primary is mirrored into the secondary so nothing known is lost on the
// switch.
type Fallback struct {
	primary   Store
	secondary Store
	degraded  atomic.Bool
	onDegrade func(err error)
}

func NewFallback(primary, secondary Store) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// OnDegrade registers a callback run once when the primary is abandoned.
func (f *Fallback) OnDegrade(fn func(err error)) {
	f.onDegrade = fn
}

// Degraded reports whether the primary has been abandoned.
func (f *Fallback) Degraded() bool {
	return f.degraded.Load()
}

func (f *Fallback) Init(ctx context.Context) error {
	if err := f.secondary.Init(ctx); err != nil {
		return err
	}
	if err := f.primary.Init(ctx); err != nil {
		f.degrade(err)
	}
	return nil
}

func (f *Fallback) Load(ctx context.Context, key string) ([]byte, error) {
	if f.Degraded() {
		return f.secondary.Load(ctx, key)
	}
	data, err := f.primary.Load(ctx, key)
	switch {
	case err == nil:
		if mirrorErr := f.secondary.Save(ctx, key, data); mirrorErr != nil {
			log.Printf("Warning: failed to mirror %s in memory: %v", key, mirrorErr)
		}
		return data, nil
	case errors.Is(err, ErrNotFound):
		return nil, err
	default:
		f.degrade(err)
		return f.secondary.Load(ctx, key)
	}
}

func (f *Fallback) Save(ctx context.Context, key string, data []byte) error {
	if err := f.secondary.Save(ctx, key, data); err != nil {
		return err
	}
	if f.Degraded() {
		return nil
	}
	if err := f.primary.Save(ctx, key, data); err != nil {
		f.degrade(err)
	}
	return nil
}

func (f *Fallback) Close() error {
	return multierr.Combine(f.primary.Close(), f.secondary.Close())
}

func (f *Fallback) degrade(err error) {
	if !f.degraded.CAS(false, true) {
		return
	}
	log.Printf("Warning: persistence unavailable, keeping state in memory only: %v", err)
	if f.onDegrade != nil {
		f.onDegrade(err)
	}
}
