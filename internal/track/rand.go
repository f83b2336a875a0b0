package track

const (
	lcgMultiplier = 16807
	lcgModulus    = 2147483647 // 2^31 - 1, classic Lehmer generator
)

// Rand is a Lehmer linear-congruential generator. A track seed owns exactly
// one stream and every draw during generation comes from it in a fixed
// order, so a seed fully determines a track.
type Rand struct {
	state int64
}

// NewRand folds any integer seed into the generator's valid state range
// [1, modulus-1]. The fold itself is deterministic, so distinct raw seeds
// that land on the same state simply name the same track.
func NewRand(seed int64) *Rand {
	s := seed % (lcgModulus - 1)
	if s < 0 {
		s += lcgModulus - 1
	}
	return &Rand{state: s + 1}
}

// Float returns the next draw in [0, 1).
func (r *Rand) Float() float64 {
	r.state = r.state * lcgMultiplier % lcgModulus
	return float64(r.state-1) / float64(lcgModulus-1)
}

// Range returns a draw in [lo, hi).
func (r *Rand) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float()
}

// Intn returns a draw in [0, n). n must be positive.
func (r *Rand) Intn(n int) int {
	return int(r.Float() * float64(n))
}

// Chance returns true with probability p.
func (r *Rand) Chance(p float64) bool {
	return r.Float() < p
}
