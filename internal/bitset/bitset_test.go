package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmap(t *testing.T) {
	b := New()

	require.Equal(t, Size, len(b))

	// should do nothing
	b.Set(676)
	b.Set(-1)

	require.Equal(t, New(), b)

	require.False(t, b.IsSet(7))
	b.Set(7)
	require.True(t, b.IsSet(7))
	b.Set(8)
	require.True(t, b.IsSet(8))
	require.False(t, b.IsSet(676))
	require.Equal(t, 2, b.Count())

	for i := 0; i < Bits; i++ {
		b.Set(i)
	}
	require.Equal(t, Bits, b.Count())

	// the 4 slack bits past 675 stay zero
	require.Equal(t, byte(0x0f), b[Size-1])
}

func TestRank(t *testing.T) {
	b := New()
	for _, i := range []int{0, 3, 9, 64, 100, 675} {
		b.Set(i)
	}

	require.Equal(t, 0, b.Rank(0))
	require.Equal(t, 1, b.Rank(1))
	require.Equal(t, 1, b.Rank(3))
	require.Equal(t, 2, b.Rank(4))
	require.Equal(t, 3, b.Rank(10))
	require.Equal(t, 3, b.Rank(64))
	require.Equal(t, 4, b.Rank(65))
	require.Equal(t, 5, b.Rank(101))
	require.Equal(t, 5, b.Rank(675))
	require.Equal(t, 6, b.Rank(676))
	require.Equal(t, 6, b.Rank(9999))
}

func TestRankMatchesCount(t *testing.T) {
	b := New()
	for i := 0; i < Bits; i += 7 {
		b.Set(i)
	}
	// rank at every position agrees with a naive scan
	n := 0
	for i := 0; i < Bits; i++ {
		require.Equal(t, n, b.Rank(i), "rank(%d)", i)
		if b.IsSet(i) {
			n++
		}
	}
	require.Equal(t, b.Count(), n)
}
