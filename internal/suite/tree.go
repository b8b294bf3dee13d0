package suite

import "time"

// Kind distinguishes groups from cases.
type Kind int

const (
	KindGroup Kind = iota + 1
	KindCase
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindCase:
		return "case"
	default:
		return "unknown"
	}
}

// Done settles an asynchronous body. A nil error means the body finished
// normally; its outcome is whatever it already reported.
type Done func(err error)

// Func executes a body. Bodies that finish asynchronously return ErrPending
// and call done exactly once later; extra calls are ignored.
type Func func(done Done) error

// Body is an executable unit: a case body or a hook.
type Body struct {
	Fn    Func
	Async bool
}

// HookKind identifies when a hook runs relative to the cases of its group.
type HookKind int

const (
	HookBeforeAll HookKind = iota + 1
	HookBeforeEach
	HookAfterEach
	HookAfterAll
)

func (h HookKind) String() string {
	switch h {
	case HookBeforeAll:
		return "before all"
	case HookBeforeEach:
		return "before each"
	case HookAfterEach:
		return "after each"
	case HookAfterAll:
		return "after all"
	default:
		return "hook"
	}
}

// Hooks are the setup and teardown bodies registered on a group.
type Hooks struct {
	BeforeAll  []Body
	BeforeEach []Body
	AfterEach  []Body
	AfterAll   []Body
}

func (h *Hooks) add(kind HookKind, b Body) {
	switch kind {
	case HookBeforeAll:
		h.BeforeAll = append(h.BeforeAll, b)
	case HookBeforeEach:
		h.BeforeEach = append(h.BeforeEach, b)
	case HookAfterEach:
		h.AfterEach = append(h.AfterEach, b)
	case HookAfterAll:
		h.AfterAll = append(h.AfterAll, b)
	}
}

// Node is a group or a case.
//
// Children keep registration order. Only cases carry a Body. A zero Timeout
// inherits the nearest ancestor's.
type Node struct {
	Kind     Kind
	Title    string
	Children []*Node
	Body     Body
	Timeout  time.Duration
	Hooks    Hooks

	parent *Node
}

// Parent returns the enclosing group, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// EffectiveTimeout returns the timeout that applies to n and whether one was
// set explicitly on n or an ancestor.
func (n *Node) EffectiveTimeout() (time.Duration, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Timeout > 0 {
			return cur.Timeout, true
		}
	}
	return 0, false
}

// Path returns the titles from the outermost group down to n, excluding the
// implicit root.
func (n *Node) Path() []string {
	var titles []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		titles = append([]string{cur.Title}, titles...)
	}
	return titles
}

// CountCases returns the number of cases under n.
func (n *Node) CountCases() int {
	if n.Kind == KindCase {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.CountCases()
	}
	return total
}

// ancestors lists the groups from the root down to n's parent.
func (n *Node) ancestors() []*Node {
	var chain []*Node
	for cur := n.parent; cur != nil; cur = cur.parent {
		chain = append([]*Node{cur}, chain...)
	}
	return chain
}
