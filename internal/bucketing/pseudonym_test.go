package bucketing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPseudonymizeStable(t *testing.T) {
	p := NewPseudonymizer("test-pepper")

	first := p.Pseudonymize("user-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.Pseudonymize("user-42"))
	}
}

func TestPseudonymizeDistinctUsers(t *testing.T) {
	p := NewPseudonymizer("test-pepper")

	seen := make(map[string]bool)
	for _, id := range []string{"user-1", "user-2", "user-3", "user-10", "USER-1"} {
		pseudonym := p.Pseudonymize(id)
		assert.False(t, seen[pseudonym], "collision for %s", id)
		seen[pseudonym] = true
	}
}

func TestPseudonymizeKeyedByPepper(t *testing.T) {
	a := NewPseudonymizer("pepper-a")
	b := NewPseudonymizer("pepper-b")

	// Without the pepper the mapping cannot be reproduced
	assert.NotEqual(t, a.Pseudonymize("user-42"), b.Pseudonymize("user-42"))
}

func TestPseudonymizeDoesNotEmbedRawID(t *testing.T) {
	p := NewPseudonymizer("test-pepper")

	rawID := "alice.smith@example.com"
	pseudonym := p.Pseudonymize(rawID)

	assert.NotContains(t, pseudonym, rawID)
	assert.NotContains(t, pseudonym, "alice")
	assert.Len(t, pseudonym, 32)
	assert.Equal(t, strings.ToLower(pseudonym), pseudonym)
}
