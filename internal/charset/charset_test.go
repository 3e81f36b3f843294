package charset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAndContains(t *testing.T) {
	var s Set
	s.Add('a')
	s.Add('z')
	require.True(t, s.Contains('a'))
	require.True(t, s.Contains('z'))
	require.False(t, s.Contains('b'))
}

func TestAddRange(t *testing.T) {
	var s Set
	s.AddRange('0', '9')
	for b := byte('0'); b <= '9'; b++ {
		require.True(t, s.Contains(b))
	}
	require.False(t, s.Contains('a'))
}

func TestComplement(t *testing.T) {
	s := Range('a', 'z')
	c := s.Complement()
	require.False(t, c.Contains('m'))
	require.True(t, c.Contains('M'))
}

func TestUnionIntersectXor(t *testing.T) {
	a := Range('a', 'm')
	b := Range('g', 'z')
	u := a.Union(b)
	require.True(t, u.Contains('a'))
	require.True(t, u.Contains('z'))

	i := a.Intersect(b)
	require.True(t, i.Contains('g'))
	require.False(t, i.Contains('a'))
	require.False(t, i.Contains('z'))

	x := a.Xor(b)
	require.True(t, x.Contains('a'))
	require.False(t, x.Contains('g'))
}

func TestMin(t *testing.T) {
	var s Set
	_, ok := s.Min()
	require.False(t, ok)

	s.Add('z')
	s.Add('a')
	m, ok := s.Min()
	require.True(t, ok)
	require.Equal(t, byte('a'), m)
}

func TestEqualAndLess(t *testing.T) {
	a := Range('a', 'c')
	b := Range('a', 'c')
	require.True(t, a.Equal(b))

	c := Range('a', 'd')
	require.True(t, a.Less(c) || c.Less(a))
}

func TestFullAndIsEmpty(t *testing.T) {
	var s Set
	require.True(t, s.IsEmpty())
	require.False(t, Full.IsEmpty())
	for b := 0; b < 256; b++ {
		require.True(t, Full.Contains(byte(b)))
	}
}
