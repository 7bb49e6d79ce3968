package keychain

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
	"github.com/juno-cash/juno-keys/ufvk"
)

const (
	// saplingMasterPerson personalizes the hash that expands a seed into
	// the sapling master node.
	saplingMasterPerson = "ZcashIP32Sapling"

	// saplingChildDomain is the domain byte of a sapling child
	// derivation.
	saplingChildDomain = 0x11
)

// Domain bytes of the sapling expanded spending key and its child tweaks.
const (
	saplingAsk = 0x00
	saplingNsk = 0x01
	saplingOvk = 0x02
	saplingDk  = 0x10

	saplingChildAsk = 0x13
	saplingChildNsk = 0x14
	saplingChildOvk = 0x15
	saplingChildDk  = 0x16
)

var (
	// saplingSpendAuthBase is the Jubjub generator of ak = [ask] G.
	saplingSpendAuthBase = mustJubjub(
		"0x0926d4f32059c712d418a7ff26753b6ad5b9a7d3ef8e282747bf46920a95a753",
		"0x57a1019e6de9b67553bb37d0c21cfd056d65674dcedbddbc305632adaaf2b530",
	)

	// saplingProofGenBase is the Jubjub generator of nk = [nsk] H.
	saplingProofGenBase = mustJubjub(
		"0x1457a50231cde2df704303f1e8906081adf2d038f2fbb8203af2dbefb96e2571",
		"0x54b6d10718df2a7adec901840f4948cc50df51eaf5a149d2467af9f7e05de8e7",
	)
)

func mustJubjub(u, v string) twistededwards.PointAffine {
	var x, y fr.Element
	if _, err := x.SetString(u); err != nil {
		panic(err)
	}
	if _, err := y.SetString(v); err != nil {
		panic(err)
	}

	p := twistededwards.NewPointAffine(x, y)
	if !p.IsOnCurve() {
		panic(fmt.Sprintf("jubjub point (%s, %s) not on curve", u, v))
	}

	return p
}

// encodeJubjub returns the Zcash encoding of a Jubjub point: the little
// endian v-coordinate with the parity of u in the top bit.
func encodeJubjub(p *twistededwards.PointAffine) [32]byte {
	out := p.Y.Bytes()
	slices.Reverse(out[:])
	if p.X.BigInt(new(big.Int)).Bit(0) == 1 {
		out[31] |= 0x80
	}

	return out
}

// saplingPool derives ZIP-32 sapling full viewing keys on the Jubjub curve.
type saplingPool struct{}

// Typecode returns the sapling typecode.
func (saplingPool) Typecode() uint32 { return ufvk.TypeSapling }

// Name returns the pool name.
func (saplingPool) Name() string { return "sapling" }

// Purpose returns the shielded purpose.
func (saplingPool) Purpose() uint32 { return ZIP0032Purpose }

// DeriveViewingKey returns ak || nk || ovk || dk of the account spending key.
func (p saplingPool) DeriveViewingKey(seed []byte, coinType,
	account uint32) ([]byte, error) {

	master := newSaplingMaster(seed)
	defer master.Zero()

	path := KeyPath{
		Purpose:  p.Purpose(),
		CoinType: coinType,
		Account:  account,
	}

	payload, err := derivePath(master, path, (*saplingKey).fullViewingKey)
	if err != nil {
		return nil, err
	}

	log.Tracef("Derived sapling viewing key at %v", path)

	return payload, nil
}

// saplingKey is a sapling extended spending key. The scalars ask and nsk
// live in the Jubjub scalar field.
type saplingKey struct {
	ask       *big.Int
	nsk       *big.Int
	ovk       [32]byte
	dk        [32]byte
	chainCode [32]byte
}

// A compile time check that saplingKey forms a shielded tree.
var _ shieldedNode[*saplingKey] = (*saplingKey)(nil)

// saplingScalar is ToScalar: the 64 byte PRF output read as a little endian
// integer and reduced modulo the Jubjub subgroup order.
func saplingScalar(wide [64]byte) *big.Int {
	defer zeroBytes(wide[:])

	curve := twistededwards.GetEdwardsCurve()
	s := leToInt(wide[:])

	return s.Mod(s, &curve.Order)
}

// newSaplingMaster expands the seed into the sapling master node.
func newSaplingMaster(seed []byte) *saplingKey {
	i := personalHash(saplingMasterPerson, seed)
	defer zeroBytes(i[:])

	sk := i[:32]
	ovk := prfExpand(sk, []byte{saplingOvk})
	dk := prfExpand(sk, []byte{saplingDk})
	defer zeroBytes(ovk[:])
	defer zeroBytes(dk[:])

	k := &saplingKey{
		ask: saplingScalar(prfExpand(sk, []byte{saplingAsk})),
		nsk: saplingScalar(prfExpand(sk, []byte{saplingNsk})),
	}
	copy(k.ovk[:], ovk[:32])
	copy(k.dk[:], dk[:32])
	copy(k.chainCode[:], i[32:])

	return k
}

// child derives the hardened child at index. The parent scalars are tweaked
// by the child PRF outputs, so sapling children are always usable.
func (k *saplingKey) child(index uint32) (*saplingKey, error) {
	if err := checkHardened(index); err != nil {
		return nil, err
	}

	ask := intToLE32(k.ask)
	nsk := intToLE32(k.nsk)
	defer zeroBytes(ask[:])
	defer zeroBytes(nsk[:])

	i := prfExpand(
		k.chainCode[:], []byte{saplingChildDomain}, ask[:], nsk[:],
		k.ovk[:], k.dk[:], leIndex(index),
	)
	defer zeroBytes(i[:])

	il := i[:32]
	ovk := prfExpand(il, []byte{saplingChildOvk}, k.ovk[:])
	dk := prfExpand(il, []byte{saplingChildDk}, k.dk[:])
	defer zeroBytes(ovk[:])
	defer zeroBytes(dk[:])

	curve := twistededwards.GetEdwardsCurve()
	order := &curve.Order

	c := &saplingKey{
		ask: saplingScalar(prfExpand(il, []byte{saplingChildAsk})),
		nsk: saplingScalar(prfExpand(il, []byte{saplingChildNsk})),
	}
	c.ask.Add(c.ask, k.ask).Mod(c.ask, order)
	c.nsk.Add(c.nsk, k.nsk).Mod(c.nsk, order)
	copy(c.ovk[:], ovk[:32])
	copy(c.dk[:], dk[:32])
	copy(c.chainCode[:], i[32:])

	return c, nil
}

// fullViewingKey returns the 128 byte encoding ak || nk || ovk || dk.
func (k *saplingKey) fullViewingKey() ([]byte, error) {
	var ak, nk twistededwards.PointAffine
	ak.ScalarMultiplication(&saplingSpendAuthBase, k.ask)
	nk.ScalarMultiplication(&saplingProofGenBase, k.nsk)

	akBytes := encodeJubjub(&ak)
	nkBytes := encodeJubjub(&nk)

	payload := make([]byte, 0, 128)
	payload = append(payload, akBytes[:]...)
	payload = append(payload, nkBytes[:]...)
	payload = append(payload, k.ovk[:]...)
	payload = append(payload, k.dk[:]...)

	return payload, nil
}

// Zero wipes the node.
func (k *saplingKey) Zero() {
	if k.ask != nil {
		k.ask.SetInt64(0)
	}
	if k.nsk != nil {
		k.nsk.SetInt64(0)
	}
	zeroBytes(k.ovk[:])
	zeroBytes(k.dk[:])
	zeroBytes(k.chainCode[:])
}
