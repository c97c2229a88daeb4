package address

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewRejectsEmptyPath(t *testing.T) {
	t.Parallel()
	_, err := New(RootUser, nil, 1)
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestChildParentRoundTrip(t *testing.T) {
	t.Parallel()
	root := RootAddress(RootUser)
	a, err := root.Child("alpha", 7)
	require.NoError(t, err)
	require.Equal(t, "alpha", a.Name())

	b, err := a.Child("beta", 8)
	require.NoError(t, err)

	parent, ok := b.Parent()
	require.True(t, ok)
	require.True(t, parent.SamePath(a))
}

func TestEqualDistinguishesIncarnation(t *testing.T) {
	t.Parallel()
	root := RootAddress(RootUser)
	a, err := root.Child("alpha", 1)
	require.NoError(t, err)
	b, err := root.Child("alpha", 2)
	require.NoError(t, err)

	require.False(t, a.Equal(b))
	require.True(t, a.SamePath(b))
}

func TestValidateSegmentRejectsReservedPrefix(t *testing.T) {
	t.Parallel()
	err := ValidateSegment("$internal", false)
	require.ErrorIs(t, err, ErrInvalidName)

	require.NoError(t, ValidateSegment("$internal", true))
}

// TestChildAlwaysRendersUnderItsRoot checks, across many random segment
// sequences, that a chain of Child calls always renders a String() starting
// with its own root marker.
func TestChildAlwaysRendersUnderItsRoot(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		root := RootAddress(RootUser)
		segGen := rapid.StringMatching(`[a-z][a-z0-9]{0,8}`)
		n := rapid.IntRange(1, 5).Draw(t, "depth")

		cur := root
		for i := 0; i < n; i++ {
			seg := segGen.Draw(t, "seg")
			next, err := cur.Child(seg, uint32(i+1))
			if err != nil {
				t.Fatalf("Child(%q): %v", seg, err)
			}
			cur = next
		}

		require.Equal(t, "/user", cur.String()[:5])
	})
}

func TestNextIncarnationNeverPerpetual(t *testing.T) {
	t.Parallel()
	for i := 0; i < 1000; i++ {
		require.NotEqual(t, Perpetual, NextIncarnation())
	}
}
