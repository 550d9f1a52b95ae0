package amm

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

const (
	seedMarket   = "market"
	seedPosition = "position"
)

// deriveKey hashes seed and parts with sha3-256. Parts are separated by a
// zero byte so ("ab","c") and ("a","bc") never collide.
func deriveKey(seed string, parts ...[]byte) string {
	h := sha3.New256()
	h.Write([]byte(seed))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MarketKey locates the market created by authority for milestoneID inside
// the program namespace.
func MarketKey(programID, authority string, milestoneID []byte) string {
	return deriveKey(seedMarket, []byte(programID), []byte(authority), milestoneID)
}

// PositionKey locates the position of user in market.
func PositionKey(market, user string) string {
	return deriveKey(seedPosition, []byte(market), []byte(user))
}
