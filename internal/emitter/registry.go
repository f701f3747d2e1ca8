package emitter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/YAOSGit/prompt-opm/emitters/golang"
	"github.com/YAOSGit/prompt-opm/emitters/jsonschema"
	"github.com/YAOSGit/prompt-opm/emitters/zod"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
)

// Registry manages the emitters of the configured targets.
type Registry struct {
	mu       sync.RWMutex
	emitters map[string]emit.Emitter
}

func NewRegistry() *Registry {
	return &Registry{
		emitters: make(map[string]emit.Emitter),
	}
}

// Builtin lists the targets that can be loaded by name.
func Builtin() []string {
	return []string{"go", "jsonschema", "zod"}
}

// LoadEmitter initializes and registers a built-in emitter.
func (r *Registry) LoadEmitter(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.emitters[name]; exists {
		return nil
	}

	var e emit.Emitter
	switch name {
	case "go":
		e = golang.New()
	case "jsonschema":
		e = jsonschema.New()
	case "zod":
		e = zod.New()
	default:
		return fmt.Errorf("unknown target: %s", name)
	}

	r.emitters[name] = e
	return nil
}

// Register adds a custom emitter, replacing any emitter of the same name.
func (r *Registry) Register(e emit.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitters[e.Name()] = e
}

// Get returns a registered emitter.
func (r *Registry) Get(name string) (emit.Emitter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.emitters[name]
	if !ok {
		return nil, fmt.Errorf("target not loaded: %s", name)
	}
	return e, nil
}

// All returns the registered emitters ordered by name.
func (r *Registry) All() []emit.Emitter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]emit.Emitter, 0, len(r.emitters))
	for _, e := range r.emitters {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Load creates a registry with every named target loaded.
func Load(targets []string) (*Registry, error) {
	r := NewRegistry()
	for _, t := range targets {
		if err := r.LoadEmitter(t); err != nil {
			return nil, fmt.Errorf("failed to load target %s: %w", t, err)
		}
	}
	return r, nil
}
