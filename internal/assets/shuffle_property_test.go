//go:build property
// +build property

package assets

import (
	"slices"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestShuffleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9001)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("equal inputs shuffle identically", prop.ForAll(
		func(items []string, seed uint64) bool {
			a := slices.Clone(items)
			b := slices.Clone(items)
			Shuffle(a, seed)
			Shuffle(b, seed)
			return slices.Equal(a, b)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.UInt64(),
	))

	properties.Property("shuffle is a permutation", prop.ForAll(
		func(items []string) bool {
			a := slices.Clone(items)
			Shuffle(a, 9001)
			sort.Strings(a)
			want := slices.Clone(items)
			sort.Strings(want)
			return slices.Equal(a, want)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
