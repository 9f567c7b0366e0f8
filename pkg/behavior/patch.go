package behavior

import "time"

// Patch is one selector-scoped set of field overrides within a Behavior.
// Patches are immutable once built; Behavior.AddPatch appends them to the
// behavior's document-ordered patch list.
type Patch struct {
	Selector Selector
	Fields   map[string]interface{}
}

// PatchBuilder assembles a Patch fluently. Unlike the expression DSL, a
// malformed PatchBuilder (bad selector name) reports its error immediately
// from NewPatch/NewNamedPatch -- there is no deferred-error chaining here,
// since behavior matrices are typically built once at startup from a
// config document and a construction-time error is easy to surface.
type PatchBuilder struct {
	selector Selector
	fields   map[string]interface{}
}

// NewPatch starts a patch scoped to an already-resolved Selector.
func NewPatch(sel Selector) *PatchBuilder {
	return &PatchBuilder{selector: sel, fields: make(map[string]interface{})}
}

// NewNamedPatch starts a patch scoped to one of the catalog selector names
// (e.g. "reads.batch.ap"). Panics if the name is malformed -- callers that
// need a recoverable error should call ParseSelector and NewPatch directly
// (this is what pkg/config does when parsing user-supplied documents).
func NewNamedPatch(name string) *PatchBuilder {
	return NewPatch(MustSelector(name))
}

// Set assigns an arbitrary field by its FieldXxx key. Used by pkg/config
// when applying document-parsed values, and available to callers who need
// a field with no typed convenience method below.
func (b *PatchBuilder) Set(key string, value interface{}) *PatchBuilder {
	b.fields[key] = value
	return b
}

func (b *PatchBuilder) MaxCallAttempts(n int) *PatchBuilder {
	return b.Set(FieldMaxCallAttempts, n)
}

func (b *PatchBuilder) AttemptTimeout(d time.Duration) *PatchBuilder {
	return b.Set(FieldAttemptTimeout, d)
}

func (b *PatchBuilder) TotalTimeout(d time.Duration) *PatchBuilder {
	return b.Set(FieldTotalTimeout, d)
}

func (b *PatchBuilder) ConnectTimeout(d time.Duration) *PatchBuilder {
	return b.Set(FieldConnectTimeout, d)
}

func (b *PatchBuilder) PostFailTimeout(d time.Duration) *PatchBuilder {
	return b.Set(FieldPostFailTimeout, d)
}

func (b *PatchBuilder) ReplicaOrder(v string) *PatchBuilder { return b.Set(FieldReplicaOrder, v) }
func (b *PatchBuilder) SendKey(v bool) *PatchBuilder         { return b.Set(FieldSendKey, v) }
func (b *PatchBuilder) Compress(v bool) *PatchBuilder        { return b.Set(FieldCompress, v) }
func (b *PatchBuilder) DurableDelete(v bool) *PatchBuilder   { return b.Set(FieldDurableDelete, v) }
func (b *PatchBuilder) CommitLevel(v string) *PatchBuilder   { return b.Set(FieldCommitLevel, v) }

func (b *PatchBuilder) ReadConsistencyAP(v string) *PatchBuilder {
	return b.Set(FieldReadConsistencyAP, v)
}

func (b *PatchBuilder) ReadConsistencyCP(v string) *PatchBuilder {
	return b.Set(FieldReadConsistencyCP, v)
}

func (b *PatchBuilder) TouchTTLPercent(v int) *PatchBuilder { return b.Set(FieldTouchTTLPercent, v) }

func (b *PatchBuilder) BatchConcurrency(v int) *PatchBuilder {
	return b.Set(FieldBatchConcurrency, v)
}

func (b *PatchBuilder) QueryQueueSize(v int) *PatchBuilder { return b.Set(FieldQueryQueueSize, v) }

// Build finalizes the patch. The returned Patch shares no mutable state
// with the builder.
func (b *PatchBuilder) Build() Patch {
	fields := make(map[string]interface{}, len(b.fields))
	for k, v := range b.fields {
		fields[k] = v
	}
	return Patch{Selector: b.selector, Fields: fields}
}
