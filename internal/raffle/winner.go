package raffle

import "github.com/holiman/uint256"

// SelectWinner maps a random word onto an index in [0, n).
// It panics when n is zero; callers only draw from non-empty rounds.
func SelectWinner(n int, random *uint256.Int) int {
	if n <= 0 {
		panic("raffle: select winner from empty participant list")
	}
	idx := new(uint256.Int).Mod(random, uint256.NewInt(uint64(n)))
	return int(idx.Uint64())
}
