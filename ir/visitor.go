package ir

// Visitor is a record of per-tag callbacks. Dispatch invokes
// the callback registered for the statement's concrete Tag, falling back to
// Generic when no specific callback is registered or InvokeDefaultVisitor
// is set.
type Visitor struct {
	callbacks map[Tag]func(*Statement)

	// Generic is the escape hatch for analyses that don't care about the
	// concrete tag.
	Generic func(*Statement)

	// PreprocessContainerStmt fires once per container statement (loops,
	// conditionals, offloaded tasks) prior to descent.
	PreprocessContainerStmt func(*Statement)

	// InvokeDefaultVisitor forces Generic to run in addition to (not
	// instead of) any registered per-tag callback.
	InvokeDefaultVisitor bool

	descendContainers bool
}

// NewVisitor creates a Visitor that descends into container bodies after
// invoking callbacks, matching the default walk order used by every pass in
// this package.
func NewVisitor() *Visitor {
	return &Visitor{callbacks: make(map[Tag]func(*Statement)), descendContainers: true}
}

// NewShallowVisitor creates a Visitor that does not auto-descend into
// container bodies; the caller is expected to recurse manually (used by
// passes that need to control descent order, e.g. the offloader).
func NewShallowVisitor() *Visitor {
	return &Visitor{callbacks: make(map[Tag]func(*Statement)), descendContainers: false}
}

// On registers a callback for a specific tag.
func (v *Visitor) On(tag Tag, fn func(*Statement)) *Visitor {
	v.callbacks[tag] = fn
	return v
}

// dispatch invokes the concrete-tag callback if one is registered, and
// additionally invokes Generic when InvokeDefaultVisitor is set. Returns
// whether a tag-specific callback fired.
func (v *Visitor) dispatch(s *Statement) bool {
	fn, ok := v.callbacks[s.Tag]
	if ok {
		fn(s)
		if v.InvokeDefaultVisitor && v.Generic != nil {
			v.Generic(s)
		}
		return true
	}
	return false
}

// Walk visits every IRNode reachable from root, the standard entry point
// used by analyses and passes throughout this repository.
func Walk(root IRNode, v *Visitor) {
	root.Accept(v)
}
