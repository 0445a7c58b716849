// Package assets allocates external asset slots. A device's persistent
// identity maps to exactly one slot number; once allocated the binding is
// persisted and reused verbatim on every restart.
package assets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPoolExhausted is returned when no slot remains in the pool. Callers skip
// binding that asset and continue with the rest of room setup.
var ErrPoolExhausted = errors.New("asset slot pool exhausted")

// Binding ties a persistent device identity to its allocated slot.
type Binding struct {
	Identity   string `json:"identity"`
	Slot       int    `json:"slot"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	InstanceID string `json:"instance_id"`
}

// Store persists bindings. Load runs once at registry construction; Append is
// called for each new allocation.
type Store interface {
	LoadBindings(ctx context.Context) ([]Binding, error)
	AppendBinding(ctx context.Context, b Binding) error
}

// Registry is the process-wide slot allocator, shared by all room
// controllers. The mutex covers the read-modify-write of a single identity's
// binding so allocate-if-absent is atomic across rooms.
type Registry struct {
	mu         sync.Mutex
	store      Store
	byIdentity map[string]Binding
	usedSlots  map[int]string
	firstSlot  int
	lastSlot   int
	logger     *zap.Logger
}

// NewRegistry loads the persisted table and validates it. A slot assigned to
// two identities means the table is corrupt; that is the one hard failure.
func NewRegistry(ctx context.Context, store Store, firstSlot, lastSlot int) (*Registry, error) {
	bindings, err := store.LoadBindings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load asset bindings: %w", err)
	}
	r := &Registry{
		store:      store,
		byIdentity: make(map[string]Binding, len(bindings)),
		usedSlots:  make(map[int]string, len(bindings)),
		firstSlot:  firstSlot,
		lastSlot:   lastSlot,
		logger:     zap.L(),
	}
	for _, b := range bindings {
		if other, dup := r.usedSlots[b.Slot]; dup {
			return nil, fmt.Errorf("asset table corrupt: slot %d assigned to both %q and %q", b.Slot, other, b.Identity)
		}
		r.byIdentity[b.Identity] = b
		r.usedSlots[b.Slot] = b.Identity
	}
	return r, nil
}

// ResolveSlot returns the binding for identity, allocating the lowest unused
// slot on first sight. Given an unchanged table the call is idempotent.
func (r *Registry) ResolveSlot(ctx context.Context, identity, name, typeTag string) (Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.byIdentity[identity]; ok {
		return b, nil
	}

	slot, ok := r.lowestFreeSlot()
	if !ok {
		return Binding{}, fmt.Errorf("%w: no slot for %q in %d..%d", ErrPoolExhausted, identity, r.firstSlot, r.lastSlot)
	}
	b := Binding{
		Identity:   identity,
		Slot:       slot,
		Name:       name,
		Type:       typeTag,
		InstanceID: uuid.NewString(),
	}
	if err := r.store.AppendBinding(ctx, b); err != nil {
		return Binding{}, fmt.Errorf("persist asset binding: %w", err)
	}
	r.byIdentity[identity] = b
	r.usedSlots[slot] = identity
	r.logger.Info("allocated asset slot",
		zap.String("identity", identity), zap.String("name", name), zap.Int("slot", slot))
	return b, nil
}

func (r *Registry) lowestFreeSlot() (int, bool) {
	for s := r.firstSlot; s <= r.lastSlot; s++ {
		if _, used := r.usedSlots[s]; !used {
			return s, true
		}
	}
	return 0, false
}
