package marketdata

// Class describes how one fetch was satisfied.
type Class string

const (
	// ClassFreshCache means the cache entry was within ttl; no network call.
	ClassFreshCache Class = "fresh-cache"
	// ClassRefreshed means a provider call succeeded and the cache was updated.
	ClassRefreshed Class = "refreshed"
	// ClassStaleCache means every provider was denied or failed and an
	// expired cache entry was served instead.
	ClassStaleCache Class = "stale-cache"
	// ClassSyntheticFallback means no usable cache entry existed either;
	// the record is a deterministic placeholder.
	ClassSyntheticFallback Class = "synthetic-fallback"
)

// Attempt records one step of a provider chain traversal.
type Attempt struct {
	// Provider is the provider's tag.
	Provider string

	// Denied is true when the local rate limiter refused the call; no
	// network request was made and no budget was consumed.
	Denied bool

	// Kind is the failure kind when the call was made and failed.
	Kind Kind
}

// Outcome is the result of one coordinator invocation for one symbol.
// It is consumed immediately by the batch layer and never persisted.
type Outcome struct {
	// Record is a copy of the resolved snapshot.
	Record Record

	// Class tells the caller how the record was obtained. Callers that
	// need real data must check it: synthetic fallbacks score like any
	// other record unless filtered here.
	Class Class

	// Kind is the terminal failure classification, set only when Class
	// is synthetic-fallback.
	Kind Kind

	// Attempts lists the denied and failed chain steps that preceded the
	// result, in traversal order.
	Attempts []Attempt
}
