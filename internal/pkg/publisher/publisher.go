// Package publisher fans sig updates out to named publishers. A failing
// publisher is logged and skipped; one bad transport never blocks the rest.
package publisher

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/fusion"
)

var ErrAlreadyRegistered = errors.New("publisher already registered")

type Publisher interface {
	Publish(ctx context.Context, u fusion.Update) error
}

type Registry struct {
	mu     sync.RWMutex
	named  map[string]Publisher
	logger *zap.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		named:  map[string]Publisher{},
		logger: zap.L(),
	}
}

func (r *Registry) Register(name string, p Publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.named[name]; ok {
		return ErrAlreadyRegistered
	}
	r.named[name] = p
	return nil
}

// Publish forwards the update to every registered publisher.
func (r *Registry) Publish(ctx context.Context, u fusion.Update) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, p := range r.named {
		if err := p.Publish(ctx, u); err != nil {
			r.logger.Error("failed to publish sig update",
				zap.Error(err), zap.String("publisher", name), zap.String("sig", u.Name))
			continue
		}
	}
}
