// Package pallas implements the group law of the Pallas curve
// y^2 = x^3 + 5 on top of the kryptology pasta field arithmetic, along with
// the Zcash point encoding and the orchard spend authorization base.
//
// The scalar multiplication is not constant time.
package pallas

import (
	"errors"
	"math/big"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fp"
	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fq"
)

// ErrInvalidEncoding is returned when 32 bytes do not encode a Pallas point.
var ErrInvalidEncoding = errors.New("invalid pallas point encoding")

var (
	curveB = new(fp.Fp).SetUint64(5)
	three  = new(fp.Fp).SetUint64(3)
	eight  = new(fp.Fp).SetUint64(8)

	// spendAuthBase is the orchard generator G^Orchard of the spend
	// authorization key ak = [ask] G.
	spendAuthBase = mustAffine(
		"375523b328f1d6063b8d187c3e5f445f0c7f0ce37b70a10c8d1a7284b875c963",
		"1ad0357fdf1a66db7b10bcfcfed624fbdfc914fec005bdd84ce33e817b0c3bc9",
	)
)

// Point is a Pallas point in Jacobian coordinates (X/Z^2, Y/Z^3). The zero
// value is the identity.
type Point struct {
	x, y, z fp.Fp
}

func mustAffine(xHex, yHex string) Point {
	x, ok := new(big.Int).SetString(xHex, 16)
	if !ok {
		panic("pallas: bad x coordinate " + xHex)
	}
	y, ok := new(big.Int).SetString(yHex, 16)
	if !ok {
		panic("pallas: bad y coordinate " + yHex)
	}

	var p Point
	p.x.SetBigInt(x)
	p.y.SetBigInt(y)
	p.z.SetOne()
	if !p.IsOnCurve() {
		panic("pallas: point not on curve")
	}

	return p
}

// SpendAuthBase returns a copy of the orchard spend authorization base.
func SpendAuthBase() *Point {
	p := spendAuthBase
	return &p
}

// Identity sets p to the point at infinity.
func (p *Point) Identity() *Point {
	p.x.SetZero()
	p.y.SetOne()
	p.z.SetZero()

	return p
}

// IsIdentity reports whether p is the point at infinity.
func (p *Point) IsIdentity() bool {
	return p.z.IsZero()
}

// Set copies q into p.
func (p *Point) Set(q *Point) *Point {
	*p = *q
	return p
}

// Neg sets p to -q.
func (p *Point) Neg(q *Point) *Point {
	p.x.Set(&q.x)
	p.y.Neg(&q.y)
	p.z.Set(&q.z)

	return p
}

// Double sets p to 2q using the dbl-2009-l formulas.
func (p *Point) Double(q *Point) *Point {
	if q.IsIdentity() {
		return p.Set(q)
	}

	var a, b, c, d, e, f, x, y, z fp.Fp
	a.Square(&q.x)
	b.Square(&q.y)
	c.Square(&b)

	// d = 2((X + B)^2 - A - C)
	x.Add(&q.x, &b)
	y.Square(&x)
	z.Sub(&y, &a)
	x.Sub(&z, &c)
	d.Double(&x)

	e.Mul(three, &a)
	f.Square(&e)

	// X3 = F - 2D
	y.Double(&d)
	x.Sub(&f, &y)

	// Y3 = E(D - X3) - 8C
	y.Sub(&d, &x)
	f.Mul(eight, &c)
	z.Mul(&e, &y)
	y.Sub(&z, &f)

	// Z3 = 2 Y1 Z1
	f.Mul(&q.y, &q.z)
	z.Double(&f)

	p.x, p.y, p.z = x, y, z

	return p
}

// Add sets p to l + r using the add-2007-bl formulas.
func (p *Point) Add(l, r *Point) *Point {
	if l.IsIdentity() {
		return p.Set(r)
	}
	if r.IsIdentity() {
		return p.Set(l)
	}

	var z1z1, z2z2, u1, u2, s1, s2 fp.Fp
	z1z1.Square(&l.z)
	z2z2.Square(&r.z)
	u1.Mul(&l.x, &z2z2)
	u2.Mul(&r.x, &z1z1)
	s1.Mul(&l.y, &z2z2)
	s1.Mul(&s1, &r.z)
	s2.Mul(&r.y, &z1z1)
	s2.Mul(&s2, &l.z)

	if u1.Equal(&u2) {
		if s1.Equal(&s2) {
			return p.Double(l)
		}

		return p.Identity()
	}

	var h, i, j, rr, v, x3, y3, z3, t fp.Fp
	h.Sub(&u2, &u1)
	i.Double(&h)
	i.Square(&i)
	j.Mul(&i, &h)
	rr.Sub(&s2, &s1)
	rr.Double(&rr)
	v.Mul(&u1, &i)

	x3.Square(&rr)
	x3.Sub(&x3, &j)
	t.Double(&v)
	x3.Sub(&x3, &t)

	s1.Mul(&s1, &j)
	s1.Double(&s1)
	t.Sub(&v, &x3)
	y3.Mul(&rr, &t)
	y3.Sub(&y3, &s1)

	z3.Add(&l.z, &r.z)
	z3.Square(&z3)
	z3.Sub(&z3, &z1z1)
	z3.Sub(&z3, &z2z2)
	z3.Mul(&z3, &h)

	p.x, p.y, p.z = x3, y3, z3

	return p
}

// ScalarMult sets p to [k] q with a four bit fixed window, most significant
// bits first.
func (p *Point) ScalarMult(q *Point, k *fq.Fq) *Point {
	var table [16]Point
	table[0].Identity()
	table[1].Set(q)
	for i := 2; i < 16; i += 2 {
		table[i].Double(&table[i>>1])
		table[i+1].Add(&table[i], q)
	}

	kBytes := k.Bytes()

	var acc Point
	acc.Identity()
	for i := 0; i < 256; i += 4 {
		for j := 0; j < 4; j++ {
			acc.Double(&acc)
		}
		window := kBytes[31-i>>3] >> (4 - i&0x04) & 0x0f
		acc.Add(&acc, &table[window])
	}

	for i := range kBytes {
		kBytes[i] = 0
	}

	return p.Set(&acc)
}

// Affine returns the affine coordinates of p. The identity has no affine
// form and reports false.
func (p *Point) Affine() (fp.Fp, fp.Fp, bool) {
	var x, y fp.Fp
	if p.IsIdentity() {
		return x, y, false
	}

	var zInv, zInv2, zInv3 fp.Fp
	zInv.Invert(&p.z)
	zInv2.Square(&zInv)
	zInv3.Mul(&zInv2, &zInv)
	x.Mul(&p.x, &zInv2)
	y.Mul(&p.y, &zInv3)

	return x, y, true
}

// Equal reports whether p and q are the same point.
func (p *Point) Equal(q *Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() == q.IsIdentity()
	}

	px, py, _ := p.Affine()
	qx, qy, _ := q.Affine()

	return px.Equal(&qx) && py.Equal(&qy)
}

// IsOnCurve reports whether p satisfies Y^2 = X^3 + 5 Z^6.
func (p *Point) IsOnCurve() bool {
	if p.IsIdentity() {
		return true
	}

	var z2, z6, x3, lhs, rhs fp.Fp
	z2.Square(&p.z)
	z6.Square(&z2)
	z6.Mul(&z6, &z2)
	x3.Square(&p.x)
	x3.Mul(&x3, &p.x)

	lhs.Square(&p.y)
	rhs.Mul(curveB, &z6)
	rhs.Add(&rhs, &x3)

	return lhs.Equal(&rhs)
}

// Bytes returns the Zcash encoding of p: the little endian x-coordinate with
// the parity of y in the top bit. The identity encodes as all zeros.
func (p *Point) Bytes() [32]byte {
	x, y, ok := p.Affine()
	if !ok {
		return [32]byte{}
	}

	out := x.Bytes()
	if y.IsOdd() {
		out[31] |= 0x80
	}

	return out
}

// SetBytes decodes a Zcash point encoding into p.
func (p *Point) SetBytes(b [32]byte) (*Point, error) {
	if b == ([32]byte{}) {
		return p.Identity(), nil
	}

	odd := b[31]>>7 == 1
	b[31] &= 0x7f

	var x fp.Fp
	if _, err := x.SetBytes(&b); err != nil {
		return nil, ErrInvalidEncoding
	}

	var y2 fp.Fp
	y2.Square(&x)
	y2.Mul(&y2, &x)
	y2.Add(&y2, curveB)

	var y fp.Fp
	if _, ok := y.Sqrt(&y2); !ok {
		return nil, ErrInvalidEncoding
	}
	if y.IsOdd() != odd {
		y.Neg(&y)
	}

	p.x, p.y = x, y
	p.z.SetOne()

	return p, nil
}
