package badger

import (
	"fmt"

	"github.com/poiesic/newsproc/core"
)

// Key prefixes for different data types
const (
	seenURLPrefix = "seenurl"
)

// makeSeenURLKey generates a key for a source URL.
// URLs are hashed so keys stay fixed-width regardless of query strings.
func makeSeenURLKey(url string) []byte {
	return []byte(fmt.Sprintf("%s:%016x", seenURLPrefix, uint64(core.KeyFromContent(url))))
}
