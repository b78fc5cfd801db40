package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededRandomIsDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestIntnStaysInRange(t *testing.T) {
	sources := map[string]Random{
		"crypto": New(),
		"seeded": NewSeeded(7),
	}
	for name, rnd := range sources {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				v := rnd.Intn(5)
				assert.GreaterOrEqual(t, v, 0)
				assert.Less(t, v, 5)
			}
			assert.Equal(t, 0, rnd.Intn(0))
		})
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	values := []int{0, 1, 2, 3, 4, 5, 6, 7}
	Shuffle(NewSeeded(3), len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, values)
}
