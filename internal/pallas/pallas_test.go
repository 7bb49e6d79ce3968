package pallas

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fq"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawScalar(rt *rapid.T, label string) *fq.Fq {
	var wide [64]byte
	copy(wide[:], rapid.SliceOfN(rapid.Byte(), 64, 64).Draw(rt, label))

	return new(fq.Fq).SetBytesWide(&wide)
}

// TestSpendAuthBase checks the generator against its published encoding.
func TestSpendAuthBase(t *testing.T) {
	t.Parallel()

	g := SpendAuthBase()
	require.True(t, g.IsOnCurve())
	require.False(t, g.IsIdentity())

	enc := g.Bytes()
	require.Equal(t, "63c975b884721a8d0ca1707be30c7f0c5f445f3e7c188d3b"+
		"06d6f128b32355b7", hex.EncodeToString(enc[:]))

	var decoded Point
	_, err := decoded.SetBytes(enc)
	require.NoError(t, err)
	require.True(t, decoded.Equal(g))

	// Callers get a copy.
	g.Double(g)
	require.False(t, SpendAuthBase().Equal(g))
}

// TestScalarMultOrder multiplies by -1 and by the group order.
func TestScalarMultOrder(t *testing.T) {
	t.Parallel()

	g := SpendAuthBase()
	minusOne := new(fq.Fq).Neg(new(fq.Fq).SetOne())

	var p, negG Point
	p.ScalarMult(g, minusOne)
	negG.Neg(g)
	require.True(t, p.Equal(&negG))

	p.Add(&p, g)
	require.True(t, p.IsIdentity())
	require.Equal(t, [32]byte{}, p.Bytes())

	p.ScalarMult(g, new(fq.Fq).SetZero())
	require.True(t, p.IsIdentity())

	p.ScalarMult(g, new(fq.Fq).SetOne())
	require.True(t, p.Equal(g))
}

// TestGroupLaw checks that scalar multiplication distributes over addition
// and that every derived point encodes and decodes.
func TestGroupLaw(t *testing.T) {
	t.Parallel()

	g := SpendAuthBase()

	rapid.Check(t, func(rt *rapid.T) {
		a := drawScalar(rt, "a")
		b := drawScalar(rt, "b")

		var aG, bG, sum, want Point
		aG.ScalarMult(g, a)
		bG.ScalarMult(g, b)
		sum.Add(&aG, &bG)
		want.ScalarMult(g, new(fq.Fq).Add(a, b))
		require.True(rt, sum.Equal(&want))
		require.True(rt, sum.IsOnCurve())

		var doubled, twice Point
		doubled.Double(&aG)
		twice.ScalarMult(g, new(fq.Fq).Double(a))
		require.True(rt, doubled.Equal(&twice))

		// Adding a point to itself takes the doubling branch.
		var self Point
		self.Add(&aG, &aG)
		require.True(rt, self.Equal(&doubled))

		var decoded Point
		_, err := decoded.SetBytes(aG.Bytes())
		require.NoError(rt, err)
		require.True(rt, decoded.Equal(&aG))
	})
}

// TestSetBytesInvalid rejects a non canonical x-coordinate.
func TestSetBytesInvalid(t *testing.T) {
	t.Parallel()

	var enc [32]byte
	copy(enc[:], bytes.Repeat([]byte{0xff}, 32))
	enc[31] = 0x7f

	var p Point
	_, err := p.SetBytes(enc)
	require.ErrorIs(t, err, ErrInvalidEncoding)
}
