package config

import (
	"fmt"
	"time"

	"github.com/kvfluent/client-go/pkg/behavior"
)

// Load parses a behaviors/system document and projects it onto a fresh
// behavior.Registry. Loading is two-pass: first every named behavior is
// created (so forward references to a not-yet-declared parent resolve),
// then each behavior's parent link and patches are applied and the whole
// graph is checked for cycles before any patch touches the registry's
// DEFAULT behavior.
func Load(data []byte) (*behavior.Registry, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return Apply(doc)
}

// Apply projects an already-parsed Document onto a fresh Registry.
func Apply(doc *Document) (*behavior.Registry, error) {
	reg := behavior.NewRegistry()

	// Pass 1: create every named behavior (parent nil for now), defaulting
	// unparented behaviors to DEFAULT.
	created := make(map[string]*behavior.Behavior, len(doc.Behaviors)+1)
	created["DEFAULT"] = reg.Default()
	parentNames := make(map[string]string, len(doc.Behaviors))

	for _, bd := range doc.Behaviors {
		if bd.Name == "DEFAULT" {
			continue // DEFAULT already exists; its own patches are applied below
		}
		if _, exists := created[bd.Name]; exists {
			return nil, &behavior.ConfigurationError{Message: fmt.Sprintf("duplicate behavior %q", bd.Name)}
		}
		parent := bd.Parent
		if parent == "" {
			parent = "DEFAULT"
		}
		parentNames[bd.Name] = parent
		created[bd.Name] = behavior.NewBehavior(bd.Name, nil) // parent wired in pass 2
	}

	// Pass 2: wire parents and detect cycles before any patch is applied.
	for name, parentName := range parentNames {
		parent, ok := created[parentName]
		if !ok {
			return nil, &behavior.ConfigurationError{Message: fmt.Sprintf("behavior %q: unknown parent %q", name, parentName)}
		}
		created[name].SetParent(parent)
	}
	for name, b := range created {
		if err := behavior.CheckAcyclic(b); err != nil {
			return nil, fmt.Errorf("config: behavior %q: %w", name, err)
		}
	}

	// Pass 3: apply patches in document order.
	for _, bd := range doc.Behaviors {
		b := created[bd.Name]
		for _, pd := range bd.Patches {
			sel, err := behavior.ParseSelector(pd.Selector)
			if err != nil {
				return nil, fmt.Errorf("config: behavior %q: %w", bd.Name, err)
			}
			patch := behavior.NewPatch(sel)
			for k, v := range pd.Fields {
				patch.Set(k, v)
			}
			b.AddPatch(patch.Build())
		}
	}

	for name, b := range created {
		if name == "DEFAULT" {
			continue
		}
		reg.Register(b)
	}

	if err := applySystem(reg.Default(), doc.System); err != nil {
		return nil, err
	}

	return reg, nil
}

// systemBlock pairs one "system:" document block with the selector it
// patches on DEFAULT.
type systemBlock struct {
	selectorName string
	fields       map[string]interface{}
}

func applySystem(def *behavior.Behavior, sys SystemDoc) error {
	blocks := []systemBlock{
		{"system.connections", sys.Connections},
		{"system.circuit_breaker", sys.CircuitBreaker},
		{"system.refresh", sys.Refresh},
	}
	for _, blk := range blocks {
		if len(blk.fields) == 0 {
			continue
		}
		sel, err := behavior.ParseSelector(blk.selectorName)
		if err != nil {
			return err
		}
		patch := behavior.NewPatch(sel)
		for k, v := range blk.fields {
			patch.Set(k, v)
		}
		def.AddPatch(patch.Build())
	}
	return nil
}

// defaultPollInterval is the Watcher's fallback polling cadence when
// fsnotify's native filesystem events aren't available or aren't firing
// (containers, network mounts).
const defaultPollInterval = 2 * time.Second
