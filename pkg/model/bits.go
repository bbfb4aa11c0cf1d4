package model

import (
	"math/bits"

	"rmimodels/pkg/dataset"
)

// numBits returns the widest field size whose every value is <= largest,
// i.e. floor(log2(largest+1)).
func numBits(largest uint64) uint8 {
	if largest == ^uint64(0) {
		return 64
	}
	return uint8(bits.Len64(largest+1) - 1)
}

// commonPrefixSize counts the leading bits shared by every key in v.
// An empty or single-key view shares all 64.
func commonPrefixSize(v dataset.View) uint8 {
	var anyOnes uint64
	noOnes := ^uint64(0)
	for i := 0; i < v.Len(); i++ {
		k := v.GetKey(i).AsUint()
		anyOnes |= k
		noOnes &= k
	}
	// bits that are 1 in some key and 0 in another
	varying := anyOnes &^ noOnes
	return uint8(bits.LeadingZeros64(varying))
}
