package analyzer

import (
	"slices"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	minDenomination btcutil.Amount = 5000
	maxDenomination btcutil.Amount = 137_438_953_472
)

// standardDenominations returns, in ascending order, the output amounts
// coordinators use for mixed outputs: the 1-2-5 series of powers of ten,
// powers of two, powers of three and twice the powers of three.
func standardDenominations() []btcutil.Amount {
	series := []struct {
		base        btcutil.Amount
		multipliers []btcutil.Amount
	}{
		{10, []btcutil.Amount{1, 2, 5}},
		{2, []btcutil.Amount{1}},
		{3, []btcutil.Amount{1, 2}},
	}

	set := make(map[btcutil.Amount]struct{})
	for _, s := range series {
		for power := btcutil.Amount(1); power <= maxDenomination; power *= s.base {
			for _, m := range s.multipliers {
				if v := power * m; v >= minDenomination && v <= maxDenomination {
					set[v] = struct{}{}
				}
			}
		}
	}

	denoms := make([]btcutil.Amount, 0, len(set))
	for v := range set {
		denoms = append(denoms, v)
	}
	slices.Sort(denoms)
	return denoms
}
