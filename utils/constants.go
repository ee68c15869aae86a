// File: utils/constants.go
package utils

import "time"

// GridCachePrefix is the prefix used for Redis slot-grid cache keys.
const GridCachePrefix = "grid:"

// GridCacheTTL is the time-to-live for slot-grid cache entries. Kept short:
// the grid is advisory, the slots collection is authoritative.
const GridCacheTTL = 15 * time.Second
