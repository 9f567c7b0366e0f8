package behavior

import (
	"fmt"
	"sort"
	"sync"
)

// Behavior is a named, optionally-inheriting collection of patches. A
// Behavior with no parent is a root. NewRegistry seeds the root named
// DEFAULT; neither it nor Register checks that a registered chain ends there.
type Behavior struct {
	name   string
	parent *Behavior

	mu      sync.RWMutex
	patches []Patch
	cache   map[Triple]*Settings
}

// NewBehavior creates a behavior inheriting from parent. Pass a nil parent
// only for the DEFAULT root.
func NewBehavior(name string, parent *Behavior) *Behavior {
	return &Behavior{
		name:   name,
		parent: parent,
		cache:  make(map[Triple]*Settings),
	}
}

// Name returns the behavior's registered name.
func (b *Behavior) Name() string { return b.name }

// Parent returns the behavior this one inherits from, or nil for DEFAULT.
func (b *Behavior) Parent() *Behavior { return b.parent }

// SetParent wires the behavior's parent link. Exposed for pkg/config's
// two-pass loader, which must create every named behavior before any
// parent reference (possibly forward-declared) can be resolved.
func (b *Behavior) SetParent(parent *Behavior) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = parent
	b.clearCacheLocked()
}

// CheckAcyclic reports a CycleError if following b's parent chain ever
// revisits a behavior, without resolving anything. Intended for use right
// after a batch of SetParent calls, before any patch is applied, so a
// malformed document fails fast rather than surfacing a cycle lazily on
// first Resolve.
func CheckAcyclic(b *Behavior) error {
	_, err := b.ancestorChain()
	return err
}

// AddPatch appends a patch to this behavior's document-ordered list and
// invalidates this behavior's resolution cache. It does not invalidate
// descendants' caches -- callers that mutate a shared Behavior after
// children were resolved must call Registry.ClearAllCaches.
func (b *Behavior) AddPatch(p Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.patches = append(b.patches, p)
	b.clearCacheLocked()
}

func (b *Behavior) clearCacheLocked() {
	b.cache = make(map[Triple]*Settings)
}

// clearCache invalidates this behavior's resolution cache.
func (b *Behavior) clearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearCacheLocked()
}

// ancestorChain returns [root, ..., parent, self], detecting cycles.
func (b *Behavior) ancestorChain() ([]*Behavior, error) {
	var chain []*Behavior
	seen := make(map[*Behavior]bool)
	var path []string
	cur := b
	var reversed []*Behavior
	for cur != nil {
		if seen[cur] {
			path = append(path, cur.name)
			return nil, &CycleError{Path: path}
		}
		seen[cur] = true
		path = append(path, cur.name)
		reversed = append(reversed, cur)
		cur = cur.parent
	}
	for i := len(reversed) - 1; i >= 0; i-- {
		chain = append(chain, reversed[i])
	}
	return chain, nil
}

// orderedMatchingPatches returns this behavior's own patches, those
// matching t, sorted ascending by specificity with ties broken by document
// order (stable sort preserves AddPatch order among equal scores).
func (b *Behavior) orderedMatchingPatches(t Triple) []Patch {
	b.mu.RLock()
	defer b.mu.RUnlock()

	matching := make([]Patch, 0, len(b.patches))
	for _, p := range b.patches {
		if p.Selector.Contains(t) {
			matching = append(matching, p)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Selector.specificity() < matching[j].Selector.specificity()
	})
	return matching
}

// Resolve computes the fully-populated Settings for a given triple,
// layering DEFAULT's matching patches, then each ancestor's in turn, then
// this behavior's own -- each layer itself ordered by ascending
// specificity -- so that within any single behavior a more specific patch
// always wins, and a child's patches always win over an ancestor's patch
// of equal or lesser specificity simply by coming later in the sequence.
// Results are cached per triple until the next AddPatch/clearCache.
func (b *Behavior) Resolve(t Triple) (*Settings, error) {
	b.mu.RLock()
	if cached, ok := b.cache[t]; ok {
		b.mu.RUnlock()
		return cached, nil
	}
	b.mu.RUnlock()

	chain, err := b.ancestorChain()
	if err != nil {
		return nil, err
	}

	var layered []Patch
	for _, ancestor := range chain {
		layered = append(layered, ancestor.orderedMatchingPatches(t)...)
	}

	settings := &Settings{}
	for _, f := range fieldTable {
		value := f.defaultValue
		for _, p := range layered {
			if v, ok := p.Fields[f.key]; ok {
				value = v
			}
		}
		f.set(settings, value)
	}

	b.mu.Lock()
	b.cache[t] = settings
	b.mu.Unlock()
	return settings, nil
}

func (b *Behavior) String() string {
	parentName := "<none>"
	if b.parent != nil {
		parentName = b.parent.name
	}
	return fmt.Sprintf("Behavior(%s, parent=%s, patches=%d)", b.name, parentName, len(b.patches))
}
