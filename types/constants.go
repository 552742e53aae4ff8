package types

import "time"

const (
	// MinOptions is the minimum number of options a proposal can offer.
	MinOptions = 2
	// MaxOptions is the maximum number of options a proposal can offer.
	MaxOptions = 16
	// MaxBuffer is the longest buffer window allowed between the end of a
	// proposal and the moment it can be finalized.
	MaxBuffer = 72 * time.Hour
	// NullifierLen is the size in bytes of a nullifier.
	NullifierLen = 32
	// CensusTreeMaxLevels is the maximum number of levels in the eligibility
	// merkle tree.
	CensusTreeMaxLevels = 160
	// CensusKeyMaxLen is the maximum length of an eligibility key in bytes.
	CensusKeyMaxLen = CensusTreeMaxLevels / 8
)
