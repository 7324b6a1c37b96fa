// Package fairness implements the dual-seed commit-reveal shuffle.
//
// The server fixes a high-entropy seed and publishes only its hash before the
// player seed is known. Both seeds then drive a deterministic unbiased
// Fisher–Yates permutation. After the hand resolves the raw server seed is
// disclosed so anyone can recompute both the hash and the shuffle.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Labels separate independent permutations derived from the same seed pair.
const (
	LabelDeck = "deck"
)

// Commitment holds the server-side seed for one hand.
type Commitment struct {
	seed []byte
}

// NewCommitment generates a fresh 32-byte server seed.
func NewCommitment() (*Commitment, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate server seed: %w", err)
	}
	return &Commitment{seed: seed}, nil
}

// Seed returns the raw server seed as hex. Disclose only after resolution.
func (c *Commitment) Seed() string {
	return hex.EncodeToString(c.seed)
}

// Hash returns the published commitment: hex sha256 of the raw seed bytes.
func (c *Commitment) Hash() string {
	sum := sha256.Sum256(c.seed)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the commitment hash from a revealed server seed.
func Verify(serverSeedHex, publishedHash string) bool {
	seed, err := hex.DecodeString(serverSeedHex)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(seed)
	return hex.EncodeToString(sum[:]) == publishedHash
}

// Shuffle returns the deck permutation of [0,n) for the given seed pair.
func Shuffle(serverSeedHex, playerSeed string, n int) ([]int, error) {
	return Perm(serverSeedHex, playerSeed, LabelDeck, n)
}

// Perm derives a deterministic permutation of [0,n) for the given seeds and
// label. The same inputs always produce the same permutation; distinct labels
// produce independent ones. The player seed may be empty.
func Perm(serverSeedHex, playerSeed, label string, n int) ([]int, error) {
	seed, err := hex.DecodeString(serverSeedHex)
	if err != nil {
		return nil, fmt.Errorf("decode server seed: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("invalid permutation size %d", n)
	}

	s := newStream(seed, playerSeed, label)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	// Fisher–Yates with rejection sampling so every permutation is
	// equally likely.
	for i := n - 1; i > 0; i-- {
		j := s.intn(uint64(i) + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

// stream is a deterministic byte stream: sha256 blocks in counter mode over a
// key derived from HMAC-SHA256(serverSeed, playerSeed || label).
type stream struct {
	key     []byte
	counter uint64
	buf     []byte
}

func newStream(serverSeed []byte, playerSeed, label string) *stream {
	mac := hmac.New(sha256.New, serverSeed)
	mac.Write([]byte(playerSeed))
	mac.Write([]byte{0})
	mac.Write([]byte(label))
	return &stream{key: mac.Sum(nil)}
}

func (s *stream) next() []byte {
	h := sha256.New()
	h.Write(s.key)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], s.counter)
	h.Write(ctr[:])
	s.counter++
	return h.Sum(nil)
}

func (s *stream) uint64() uint64 {
	if len(s.buf) < 8 {
		s.buf = s.next()
	}
	v := binary.BigEndian.Uint64(s.buf[:8])
	s.buf = s.buf[8:]
	return v
}

// intn returns a uniform value in [0,n) without modulo bias.
func (s *stream) intn(n uint64) int {
	limit := (^uint64(0) / n) * n
	for {
		v := s.uint64()
		if v < limit {
			return int(v % n)
		}
	}
}
