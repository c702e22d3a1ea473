package config

// Method cache tuning. The cache starts as a flat pair list and is
// promoted to a fixed packed table once a collision-free (shift, mask)
// hash over the current keys exists.
const (
	// CachePromoteThreshold is the sparse entry count above which an
	// insert attempts promotion to the packed representation.
	CachePromoteThreshold = 8

	// CacheMaxMaskBits bounds the packed table at 2^CacheMaxMaskBits slots.
	CacheMaxMaskBits = 13

	// CacheMaxShift bounds the hash shift search.
	CacheMaxShift = 30
)

// ManifestFileName is the default protocol manifest file name looked up
// by the CLI when no explicit path is given.
const ManifestFileName = "protocols.yaml"
