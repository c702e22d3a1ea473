package mcache

import "github.com/getprotean/protean/internal/config"

// minHash searches for the smallest packed table admitting a
// collision-free slot assignment for hashes. Masks are tried smallest
// first so the winning table stays compact; for each mask every shift
// up to config.CacheMaxShift is tried. Returns ok=false when no pair
// exists, which leaves the cache in its sparse form.
func minHash(hashes []uint32) (shift, mask uint32, ok bool) {
	for bits := 1; bits <= config.CacheMaxMaskBits; bits++ {
		m := uint32(1)<<bits - 1
		if int(m)+1 < len(hashes) {
			continue
		}
		for s := uint32(0); s <= config.CacheMaxShift; s++ {
			if distinctUnder(hashes, s, m) {
				return s, m, true
			}
		}
	}
	return 0, 0, false
}

func distinctUnder(hashes []uint32, shift, mask uint32) bool {
	seen := make(map[uint32]struct{}, len(hashes))
	for _, h := range hashes {
		slot := (h >> shift) & mask
		if _, dup := seen[slot]; dup {
			return false
		}
		seen[slot] = struct{}{}
	}
	return true
}
