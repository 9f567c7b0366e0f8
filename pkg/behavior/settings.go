package behavior

import "time"

// Field keys. These are the exact names used in patches (whether built via
// the fluent Patch API or parsed from a config document by pkg/config), so
// the two packages never need a translation table between them.
const (
	FieldAttemptTimeout    = "attemptTimeout"
	FieldTotalTimeout      = "totalTimeout"
	FieldConnectTimeout    = "connectTimeout"
	FieldPostFailTimeout   = "postFailTimeout"
	FieldMaxCallAttempts   = "maximumNumberOfCallAttempts"
	FieldReplicaOrder      = "replicaOrder"
	FieldSendKey           = "sendKey"
	FieldCompress          = "compress"
	FieldDurableDelete     = "durableDelete"
	FieldCommitLevel       = "commitLevel"
	FieldReadConsistencyAP = "readConsistencyAP"
	FieldReadConsistencyCP = "readConsistencyCP"
	FieldTouchTTLPercent   = "touchTTLPercent"

	FieldBatchConcurrency       = "batchConcurrency"
	FieldBatchAllowInlineRecord = "batchAllowInlineRecord"
	FieldBatchAllowInlineSSD    = "batchAllowInlineSSD"
	FieldQueryQueueSize         = "queryQueueSize"

	FieldMinConnsPerNode  = "minimumConnectionsPerNode"
	FieldMaxConnsPerNode  = "maximumConnectionsPerNode"
	FieldMaxSocketIdle    = "maximumSocketIdleTime"
	FieldErrorWindowTicks = "numTendIntervalsInErrorWindow"
	FieldMaxErrorsInWindow = "maximumErrorsInErrorWindow"
	FieldTendInterval     = "tendInterval"
)

// Replica order and consistency enums. Kept as plain strings (matching the
// teacher's preference for small string enums over generated constants)
// rather than custom types, since these values pass straight through to
// config documents and adapter structs without further branching here.
const (
	ReplicaMasterOnly   = "MASTER"
	ReplicaMasterProles = "MASTER_PROLES"
	ReplicaSequence     = "SEQUENCE"
	ReplicaRandom       = "RANDOM"

	CommitAll    = "COMMIT_ALL"
	CommitMaster = "COMMIT_MASTER"

	ConsistencyOne = "ONE"
	ConsistencyAll = "ALL"

	ConsistencyLinearize = "LINEARIZE"
	ConsistencySession   = "SESSION"
)

// Settings is the fully-resolved policy for one (Kind, Shape, Mode) triple.
// Every field is populated by resolution -- there is no notion of a "zero"
// Settings escaping to a caller.
type Settings struct {
	AttemptTimeout  time.Duration
	TotalTimeout    time.Duration
	ConnectTimeout  time.Duration
	PostFailTimeout time.Duration

	MaxCallAttempts int

	ReplicaOrder      string
	SendKey           bool
	Compress          bool
	DurableDelete     bool
	CommitLevel       string
	ReadConsistencyAP string
	ReadConsistencyCP string
	TouchTTLPercent   int

	BatchConcurrency       int
	BatchAllowInlineRecord bool
	BatchAllowInlineSSD    bool
	QueryQueueSize         int

	MinConnsPerNode  int
	MaxConnsPerNode  int
	MaxSocketIdle    time.Duration
	ErrorWindowTicks int
	MaxErrorsInWindow int
	TendInterval     time.Duration
}

type fieldDef struct {
	key          string
	defaultValue interface{}
	set          func(s *Settings, v interface{})
}

// fieldTable drives resolution: for each field, walk the concatenated patch
// list looking for the last patch that both matches the triple and sets
// this key, falling back to defaultValue if none ever does (DEFAULT's "all"
// patch is expected to cover every key, so the fallback is a safety net,
// not the primary path).
var fieldTable = []fieldDef{
	{FieldAttemptTimeout, 1 * time.Second, func(s *Settings, v interface{}) { s.AttemptTimeout = v.(time.Duration) }},
	{FieldTotalTimeout, 30 * time.Second, func(s *Settings, v interface{}) { s.TotalTimeout = v.(time.Duration) }},
	{FieldConnectTimeout, 1 * time.Second, func(s *Settings, v interface{}) { s.ConnectTimeout = v.(time.Duration) }},
	{FieldPostFailTimeout, 10 * time.Millisecond, func(s *Settings, v interface{}) { s.PostFailTimeout = v.(time.Duration) }},
	{FieldMaxCallAttempts, 3, func(s *Settings, v interface{}) { s.MaxCallAttempts = v.(int) }},
	{FieldReplicaOrder, ReplicaSequence, func(s *Settings, v interface{}) { s.ReplicaOrder = v.(string) }},
	{FieldSendKey, false, func(s *Settings, v interface{}) { s.SendKey = v.(bool) }},
	{FieldCompress, false, func(s *Settings, v interface{}) { s.Compress = v.(bool) }},
	{FieldDurableDelete, false, func(s *Settings, v interface{}) { s.DurableDelete = v.(bool) }},
	{FieldCommitLevel, CommitAll, func(s *Settings, v interface{}) { s.CommitLevel = v.(string) }},
	{FieldReadConsistencyAP, ConsistencyOne, func(s *Settings, v interface{}) { s.ReadConsistencyAP = v.(string) }},
	{FieldReadConsistencyCP, ConsistencyLinearize, func(s *Settings, v interface{}) { s.ReadConsistencyCP = v.(string) }},
	{FieldTouchTTLPercent, 0, func(s *Settings, v interface{}) { s.TouchTTLPercent = v.(int) }},
	{FieldBatchConcurrency, 1, func(s *Settings, v interface{}) { s.BatchConcurrency = v.(int) }},
	{FieldBatchAllowInlineRecord, true, func(s *Settings, v interface{}) { s.BatchAllowInlineRecord = v.(bool) }},
	{FieldBatchAllowInlineSSD, false, func(s *Settings, v interface{}) { s.BatchAllowInlineSSD = v.(bool) }},
	{FieldQueryQueueSize, 4096, func(s *Settings, v interface{}) { s.QueryQueueSize = v.(int) }},
	{FieldMinConnsPerNode, 0, func(s *Settings, v interface{}) { s.MinConnsPerNode = v.(int) }},
	{FieldMaxConnsPerNode, 100, func(s *Settings, v interface{}) { s.MaxConnsPerNode = v.(int) }},
	{FieldMaxSocketIdle, 55 * time.Second, func(s *Settings, v interface{}) { s.MaxSocketIdle = v.(time.Duration) }},
	{FieldErrorWindowTicks, 1, func(s *Settings, v interface{}) { s.ErrorWindowTicks = v.(int) }},
	{FieldMaxErrorsInWindow, 100, func(s *Settings, v interface{}) { s.MaxErrorsInWindow = v.(int) }},
	{FieldTendInterval, 1 * time.Second, func(s *Settings, v interface{}) { s.TendInterval = v.(time.Duration) }},
}

// DefaultFieldValues returns the built-in fallback for every known field,
// keyed by field name. NewRegistry uses this to seed the DEFAULT behavior's
// "all" patch, on which pkg/config then applies what it reads from a document.
func DefaultFieldValues() map[string]interface{} {
	out := make(map[string]interface{}, len(fieldTable))
	for _, f := range fieldTable {
		out[f.key] = f.defaultValue
	}
	return out
}
