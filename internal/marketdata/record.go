package marketdata

import "time"

// Record is one symbol's latest known market snapshot, normalized to a
// common shape regardless of which provider produced it. Records are
// value types: every hand-off copies, so downstream consumers can never
// mutate what the cache holds.
type Record struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Change     float64   `json:"change"`
	Volume     int64     `json:"volume"`
	Sector     string    `json:"sector"`
	ObservedAt time.Time `json:"observed_at"`
	Provenance string    `json:"provenance"`
}

// Symbol pairs a ticker with the sector tag the symbol source knows for
// it. The sector may be empty; the coordinator fills a plausible default
// when providers return none either.
type Symbol struct {
	Ticker string
	Sector string
}
