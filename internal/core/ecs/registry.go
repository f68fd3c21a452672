package ecs

// Registry holds every component store attached to a world so entity
// destruction can clear all of them in one sweep. Stores register once at
// construction; the set never shrinks.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{stores: make([]Removable, 0, 8)}
}

// Register attaches a store. Not idempotent: registering the same store twice
// means redundant (harmless) removes on destroy.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll strips the entity's data out of every registered store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, store := range r.stores {
		store.Remove(id)
	}
}

// StoreCount returns the number of registered stores.
func (r *Registry) StoreCount() int {
	return len(r.stores)
}
