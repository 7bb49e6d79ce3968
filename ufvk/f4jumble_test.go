package ufvk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestF4JumbleInverse checks that f4JumbleInv undoes f4Jumble for message
// lengths on both sides of the single block boundary.
func TestF4JumbleInverse(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		msg := rapid.SliceOfN(
			rapid.Byte(), minJumbleLen, 2048,
		).Draw(rt, "msg")

		jumbled, err := f4Jumble(msg)
		require.NoError(rt, err)
		require.Len(rt, jumbled, len(msg))

		back, err := f4JumbleInv(jumbled)
		require.NoError(rt, err)
		require.Equal(rt, msg, back)
	})
}

// TestF4JumbleDiffusion flips a single input bit and expects both halves of
// the output to change.
func TestF4JumbleDiffusion(t *testing.T) {
	t.Parallel()

	for _, n := range []int{minJumbleLen, 100, 129, 1000} {
		msg := bytes.Repeat([]byte{0x5a}, n)
		base, err := f4Jumble(msg)
		require.NoError(t, err)

		for _, pos := range []int{0, n / 2, n - 1} {
			flipped := append([]byte(nil), msg...)
			flipped[pos] ^= 0x01

			out, err := f4Jumble(flipped)
			require.NoError(t, err)

			left, _ := splitLens(n)
			require.NotEqual(t, base[:left], out[:left],
				"len %d pos %d", n, pos)
			require.NotEqual(t, base[left:], out[left:],
				"len %d pos %d", n, pos)
		}
	}
}

// TestF4JumbleLength checks the accepted length bounds.
func TestF4JumbleLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, minJumbleLen - 1} {
		_, err := f4Jumble(make([]byte, n))
		require.ErrorIs(t, err, ErrMalformedPayload)

		_, err = f4JumbleInv(make([]byte, n))
		require.ErrorIs(t, err, ErrMalformedPayload)
	}

	_, err := f4Jumble(make([]byte, maxJumbleLen+1))
	require.ErrorIs(t, err, ErrMalformedPayload)
}
