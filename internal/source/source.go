// Package source describes the sites forward curves are scraped from: where
// each page lives, how its forward-rate table is recognised and which column
// holds which field.
package source

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/seenimoa/fxforward/internal/scrape"
	"github.com/seenimoa/fxforward/pkg/models"
)

// Default is the source used when none is selected.
const Default = "fxempire"

// Source is one scrape target.
type Source struct {
	Name        string                `json:"name"`
	Host        string                `json:"host"`
	URLTemplate string                `json:"url_template"` // %s is replaced by the pair slug
	Matchers    []scrape.TableMatcher `json:"-"`
	Layout      scrape.Layout         `json:"-"`
}

// URL returns the forward-rates page for pair.
func (s *Source) URL(pair models.CurrencyPair) string {
	return fmt.Sprintf(s.URLTemplate, pair.Slug)
}

// MatcherNames lists the table strategies in the order they are tried.
func (s *Source) MatcherNames() []string {
	names := make([]string, len(s.Matchers))
	for i, m := range s.Matchers {
		names[i] = m.Name()
	}
	return names
}

// Info is the serialisable summary of a Source.
type Info struct {
	Name        string   `json:"name"`
	Host        string   `json:"host"`
	URLTemplate string   `json:"url_template"`
	Matchers    []string `json:"matchers"`
	Default     bool     `json:"default"`
}

// ErrSourceNotFound is returned when a requested source is not registered.
type ErrSourceNotFound struct {
	Name string
}

func (e *ErrSourceNotFound) Error() string {
	return fmt.Sprintf("source %q not found", e.Name)
}

// Registry is a thread-safe set of sources keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
	def     string
}

// NewRegistry creates an empty registry whose default is Default.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*Source),
		def:     Default,
	}
}

// NewDefaultRegistry returns a registry holding every built-in source.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range Builtin() {
		// Built-ins are well-formed; Register only rejects empty names.
		_ = r.Register(s)
	}
	return r
}

// normalizeName folds a source name to its registry key.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a source under its lower-cased name. Duplicate registrations
// overwrite the previous entry.
func (r *Registry) Register(s *Source) error {
	if s == nil || normalizeName(s.Name) == "" {
		return fmt.Errorf("source name cannot be empty")
	}
	if !strings.Contains(s.URLTemplate, "%s") {
		return fmt.Errorf("source %q: url template must contain %%s", s.Name)
	}
	if len(s.Matchers) == 0 {
		return fmt.Errorf("source %q: at least one table matcher is required", s.Name)
	}

	cp := *s
	cp.Name = normalizeName(s.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[cp.Name] = &cp
	return nil
}

// Get returns a source by name. An empty name resolves to the default.
func (r *Registry) Get(name string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.def
	}
	s, ok := r.sources[normalizeName(name)]
	if !ok {
		return nil, &ErrSourceNotFound{Name: name}
	}
	return s, nil
}

// SetDefault changes the source used for empty names.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeName(name)
	if _, ok := r.sources[key]; !ok {
		return &ErrSourceNotFound{Name: name}
	}
	r.def = key
	return nil
}

// DefaultName returns the name an empty selection resolves to.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns info about all registered sources, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.sources))
	for _, s := range r.sources {
		infos = append(infos, Info{
			Name:        s.Name,
			Host:        s.Host,
			URLTemplate: s.URLTemplate,
			Matchers:    s.MatcherNames(),
			Default:     s.Name == r.def,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
