package component

// Metadata stores per-entity flags consumed across systems.
// Pure data, zero methods.
type Metadata struct {
	Name string

	// InContainer means a container entity owns this entity's positioning.
	// Movement and traversal leave contained entities alone.
	InContainer bool
}
