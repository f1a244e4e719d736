package privacy

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// NoiseInjector applies Laplace-mechanism differential privacy noise to
// released counts. Stateless beyond its random source; each export
// draws fresh, independent noise. No cross-query budget accounting is
// performed; repeated overlapping exports remain a documented
// correlation risk.
type NoiseInjector struct {
	epsilon float64
	rng     *rand.Rand
}

// NewNoiseInjector creates an injector with a time-seeded random source
func NewNoiseInjector(epsilon float64) (*NoiseInjector, error) {
	return NewNoiseInjectorWithSource(epsilon, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewNoiseInjectorWithSource creates an injector with an explicit
// random source, for deterministic tests
func NewNoiseInjectorWithSource(epsilon float64, rng *rand.Rand) (*NoiseInjector, error) {
	if epsilon <= 0 {
		return nil, fmt.Errorf("epsilon must be positive, got %f", epsilon)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &NoiseInjector{epsilon: epsilon, rng: rng}, nil
}

// laplace draws one Laplace(0, scale) sample by inverse-CDF transform
// from a uniform draw on (-0.5, 0.5)
func (n *NoiseInjector) laplace(scale float64) float64 {
	u := n.rng.Float64() - 0.5
	if u < 0 {
		return scale * math.Log(1.0+2.0*u)
	}
	return -scale * math.Log(1.0-2.0*u)
}

// NoisyCount adds Laplace noise calibrated for a counting query
// (sensitivity = 1, scale = 1/epsilon) and clamps the result to a
// non-negative integer
func (n *NoiseInjector) NoisyCount(trueValue int) int {
	scale := 1.0 / n.epsilon
	noisy := math.Round(float64(trueValue) + n.laplace(scale))
	if noisy < 0 {
		return 0
	}
	return int(noisy)
}

// AddNoise applies NoisyCount to each count independently
func (n *NoiseInjector) AddNoise(counts []int) []int {
	result := make([]int, len(counts))
	for i, c := range counts {
		result[i] = n.NoisyCount(c)
	}
	return result
}
