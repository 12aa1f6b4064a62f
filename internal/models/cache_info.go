package models

// CacheStatus is reported to clients in the X-Cache-Status header
type CacheStatus string

const (
	CacheStatusHit     CacheStatus = "HIT"
	CacheStatusMiss    CacheStatus = "MISS"
	CacheStatusBypass  CacheStatus = "BYPASS"
	CacheStatusOffline CacheStatus = "OFFLINE"
	CacheStatusPass    CacheStatus = "PASS"
)

// CacheLevel identifies which storage level answered a lookup
type CacheLevel string

const (
	CacheLevelL1   CacheLevel = "l1"
	CacheLevelL2   CacheLevel = "l2"
	CacheLevelMiss CacheLevel = "miss"
)

// LookupResult is the outcome of a level-aware cache lookup
type LookupResult struct {
	Entry *CacheEntry
	Found bool
	Level CacheLevel
}
