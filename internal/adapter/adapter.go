package adapter

import (
	"errors"
	"sort"
	"sync"

	"github.com/roach88/kata/internal/suite"
)

// ErrUnknownFramework is returned for an unregistered framework id.
var ErrUnknownFramework = errors.New("unknown test framework")

// Framework ids of the built-in adapters.
const (
	CW2      = "cw-2"
	MochaBDD = "mocha_bdd"
	MochaTDD = "mocha_tdd"
	KarmaBDD = "karma_bdd"
	KarmaTDD = "karma_tdd"
)

// Vocabulary lists the global names an adapter defines.
type Vocabulary struct {
	Groups []string
	Cases  []string
	Hooks  map[string]suite.HookKind
}

// Names returns every global the vocabulary defines, sorted.
func (v Vocabulary) Names() []string {
	names := append(append([]string{}, v.Groups...), v.Cases...)
	for name := range v.Hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	bdd = Vocabulary{
		Groups: []string{"describe", "context"},
		Cases:  []string{"it", "specify"},
		Hooks: map[string]suite.HookKind{
			"before":     suite.HookBeforeAll,
			"beforeEach": suite.HookBeforeEach,
			"afterEach":  suite.HookAfterEach,
			"after":      suite.HookAfterAll,
		},
	}
	tdd = Vocabulary{
		Groups: []string{"suite"},
		Cases:  []string{"test"},
		Hooks: map[string]suite.HookKind{
			"suiteSetup":    suite.HookBeforeAll,
			"setup":         suite.HookBeforeEach,
			"teardown":      suite.HookAfterEach,
			"suiteTeardown": suite.HookAfterAll,
		},
	}
)

// Adapter describes one framework family.
type Adapter struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Vocabulary Vocabulary `json:"-"`

	// TimeoutArgument accepts describe(title, ms|true, fn).
	TimeoutArgument bool `json:"-"`
	// TestAliases exposes the group and case functions as Test.describe and
	// Test.it.
	TestAliases bool `json:"-"`
	// Bootstrap evaluates the request's setup code and installs the chai
	// globals before the fixture registers anything.
	Bootstrap bool `json:"bootstrap"`
	// FailOnError reports every case fault as FAILED.
	FailOnError bool `json:"-"`
}

// Registry holds the adapters available to runs.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns a registry with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.registerDefaults()
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID] = a
}

// Get returns the adapter for id.
func (r *Registry) Get(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	if !ok {
		return Adapter{}, ErrUnknownFramework
	}
	return a, nil
}

// List returns every adapter ordered by id.
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *Registry) registerDefaults() {
	r.Register(Adapter{
		ID:              CW2,
		Name:            "Codewars",
		Description:     "describe/it with the Test assertion object",
		Vocabulary:      bdd,
		TimeoutArgument: true,
		TestAliases:     true,
	})
	r.Register(Adapter{
		ID:          MochaBDD,
		Name:        "Mocha BDD",
		Description: "describe/it with before/beforeEach/afterEach/after",
		Vocabulary:  bdd,
	})
	r.Register(Adapter{
		ID:          MochaTDD,
		Name:        "Mocha TDD",
		Description: "suite/test with suiteSetup/setup/teardown/suiteTeardown",
		Vocabulary:  tdd,
	})
	r.Register(Adapter{
		ID:          KarmaBDD,
		Name:        "Karma BDD",
		Description: "Mocha BDD with a setup phase and chai globals",
		Vocabulary:  bdd,
		Bootstrap:   true,
		FailOnError: true,
	})
	r.Register(Adapter{
		ID:          KarmaTDD,
		Name:        "Karma TDD",
		Description: "Mocha TDD with a setup phase and chai globals",
		Vocabulary:  tdd,
		Bootstrap:   true,
		FailOnError: true,
	})
}
