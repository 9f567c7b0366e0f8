package exec

import (
	"time"

	"github.com/kvfluent/client-go/pkg/kv"
	"github.com/kvfluent/client-go/pkg/kverrors"
)

// AbsoluteTTLThreshold is the boundary above which a positive TTL value is
// interpreted as an absolute unix-seconds deadline rather than a
// seconds-from-now duration -- roughly ten years of relative seconds,
// mirroring the convention kv.Record's VoidTime field already assumes
// ("absolute expiration, server clock units").
const AbsoluteTTLThreshold int32 = 10 * 365 * 24 * 60 * 60

// ResolveTTL applies spec.md §4.5's expiration semantics: the effective TTL
// is the first non-zero of (perRecord, perBatch). Sentinel 0 (server
// default) is therefore indistinguishable from "unset" at the per-record
// level by design -- a record explicitly asking for the server default
// needs no batch-level override anyway. Sentinels -1 (never expire) and -2
// (don't change) pass through unchanged. A resolved value above
// AbsoluteTTLThreshold is treated as an absolute deadline; if it has
// already passed, ResolveTTL fails with invalid argument.
func ResolveTTL(perRecord, perBatch int32, now time.Time) (int32, error) {
	ttl := perRecord
	if ttl == 0 {
		ttl = perBatch
	}
	if ttl == kv.TTLServerDefault || ttl == kv.TTLNeverExpire || ttl == kv.TTLDontChange {
		return ttl, nil
	}
	if ttl > AbsoluteTTLThreshold && int64(ttl) < now.Unix() {
		return 0, kverrors.NewUsageError("ttl: absolute deadline has already passed")
	}
	return ttl, nil
}
