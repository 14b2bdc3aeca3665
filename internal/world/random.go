package world

import (
	"hash/fnv"
	"math/rand/v2"
)

// seedStreamOffset splits one derived seed into the two words a PCG stream
// wants, keeping distinct subsystems on distinct streams.
const seedStreamOffset = 0x9e3779b97f4a7c15

// DeterministicSeedValue hashes a root seed and a subsystem label into a
// 64-bit seed. The same root and label always produce the same stream.
func DeterministicSeedValue(rootSeed, label string) uint64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return sum
}

// NewSessionRNG builds the generator for one subsystem of a session. The
// returned PCG is the serializable source backing the Rand; snapshots
// capture it with MarshalBinary so a restore resumes mid-stream.
func NewSessionRNG(rootSeed, label string) (*rand.Rand, *rand.PCG) {
	seed := DeterministicSeedValue(rootSeed, label)
	pcg := rand.NewPCG(seed, seed^seedStreamOffset)
	return rand.New(pcg), pcg
}
