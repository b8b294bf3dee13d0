package suite

import "time"

// Phase is the lifecycle state of a run's tree.
type Phase int

const (
	PhaseRegistering Phase = iota
	PhaseExecuting
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseRegistering:
		return "registering"
	case PhaseExecuting:
		return "executing"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Builder assembles the tree during the registration phase.
//
// The root group is implicit. Describe pushes a group, runs its registration
// callback, and pops it again, so calls made from inside the callback nest
// under it.
type Builder struct {
	root  *Node
	open  []*Node
	phase Phase
}

// NewBuilder returns a builder with an empty root group.
func NewBuilder() *Builder {
	root := &Node{Kind: KindGroup}
	return &Builder{root: root, open: []*Node{root}}
}

// Root returns the implicit root group.
func (b *Builder) Root() *Node {
	return b.root
}

// Phase returns the current lifecycle phase.
func (b *Builder) Phase() Phase {
	return b.phase
}

// Empty reports whether nothing has been registered.
func (b *Builder) Empty() bool {
	return len(b.root.Children) == 0
}

func (b *Builder) current() *Node {
	return b.open[len(b.open)-1]
}

// Describe registers a group and runs register with the group open.
// A non-zero timeout overrides the limit for everything inside it.
func (b *Builder) Describe(title string, timeout time.Duration, register func() error) error {
	if b.phase != PhaseRegistering {
		return ErrNotRegistering
	}

	parent := b.current()
	g := &Node{Kind: KindGroup, Title: title, Timeout: timeout, parent: parent}
	parent.Children = append(parent.Children, g)

	b.open = append(b.open, g)
	defer func() { b.open = b.open[:len(b.open)-1] }()

	if register == nil {
		return nil
	}
	return register()
}

// It registers a case in the currently open group.
func (b *Builder) It(title string, body Body) error {
	if b.phase != PhaseRegistering {
		return ErrNotRegistering
	}
	parent := b.current()
	parent.Children = append(parent.Children, &Node{
		Kind:   KindCase,
		Title:  title,
		Body:   body,
		parent: parent,
	})
	return nil
}

// Hook registers a setup or teardown body on the currently open group.
func (b *Builder) Hook(kind HookKind, body Body) error {
	if b.phase != PhaseRegistering {
		return ErrNotRegistering
	}
	b.current().Hooks.add(kind, body)
	return nil
}

// SetTimeout overrides the limit of the currently open group. At the top
// level it sets the default for the whole tree.
func (b *Builder) SetTimeout(d time.Duration) error {
	if b.phase != PhaseRegistering {
		return ErrNotRegistering
	}
	b.current().Timeout = d
	return nil
}

// Seal ends the registration phase and returns the finished tree.
func (b *Builder) Seal() *Node {
	if b.phase == PhaseRegistering {
		b.phase = PhaseExecuting
	}
	return b.root
}

func (b *Builder) complete() {
	b.phase = PhaseCompleted
}
