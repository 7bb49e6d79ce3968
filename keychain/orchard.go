package keychain

import (
	"fmt"

	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fp"
	"github.com/coinbase/kryptology/pkg/core/curves/native/pasta/fq"
	"github.com/juno-cash/juno-keys/internal/pallas"
	"github.com/juno-cash/juno-keys/ufvk"
)

const (
	// orchardMasterPerson personalizes the hash that expands a seed into
	// the orchard master node.
	orchardMasterPerson = "ZcashIP32Orchard"

	// orchardChildDomain is the domain byte of an orchard child
	// derivation.
	orchardChildDomain = 0x81
)

// Domain bytes of the orchard spending key components.
const (
	orchardAsk  = 0x06
	orchardNk   = 0x07
	orchardRivk = 0x08
)

// orchardPool derives ZIP-32 orchard full viewing keys on the Pallas curve.
type orchardPool struct{}

// Typecode returns the orchard typecode.
func (orchardPool) Typecode() uint32 { return ufvk.TypeOrchard }

// Name returns the pool name.
func (orchardPool) Name() string { return "orchard" }

// Purpose returns the shielded purpose.
func (orchardPool) Purpose() uint32 { return ZIP0032Purpose }

// DeriveViewingKey returns ak || nk || rivk of the account spending key.
func (p orchardPool) DeriveViewingKey(seed []byte, coinType,
	account uint32) ([]byte, error) {

	master, err := newOrchardMaster(seed)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	path := KeyPath{
		Purpose:  p.Purpose(),
		CoinType: coinType,
		Account:  account,
	}

	payload, err := derivePath(master, path, (*orchardKey).fullViewingKey)
	if err != nil {
		return nil, err
	}

	log.Tracef("Derived orchard viewing key at %v", path)

	return payload, nil
}

// orchardKey is an orchard extended spending key: the 32 byte spending key
// sk and its chain code.
type orchardKey struct {
	sk        [32]byte
	chainCode [32]byte
}

// A compile time check that orchardKey forms a shielded tree.
var _ shieldedNode[*orchardKey] = (*orchardKey)(nil)

// newOrchardMaster expands the seed into the orchard master node. A master
// spending key with a zero ask cannot be used.
func newOrchardMaster(seed []byte) (*orchardKey, error) {
	i := personalHash(orchardMasterPerson, seed)
	defer zeroBytes(i[:])

	k := &orchardKey{}
	copy(k.sk[:], i[:32])
	copy(k.chainCode[:], i[32:])

	if !k.valid() {
		k.Zero()
		return nil, fmt.Errorf("%w: unusable orchard master key",
			ErrDerivationExhausted)
	}

	return k, nil
}

// child derives the hardened child at index.
func (k *orchardKey) child(index uint32) (*orchardKey, error) {
	if err := checkHardened(index); err != nil {
		return nil, err
	}

	i := prfExpand(
		k.chainCode[:], []byte{orchardChildDomain}, k.sk[:],
		leIndex(index),
	)
	defer zeroBytes(i[:])

	c := &orchardKey{}
	copy(c.sk[:], i[:32])
	copy(c.chainCode[:], i[32:])

	if !c.valid() {
		c.Zero()
		return nil, errInvalidKey
	}

	return c, nil
}

// spendAuthKey returns ask = ToScalar(PRF^expand(sk, [6])).
func (k *orchardKey) spendAuthKey() *fq.Fq {
	wide := prfExpand(k.sk[:], []byte{orchardAsk})
	defer zeroBytes(wide[:])

	return new(fq.Fq).SetBytesWide(&wide)
}

// valid reports whether the spending key yields a non zero ask.
func (k *orchardKey) valid() bool {
	ask := k.spendAuthKey()
	defer ask.SetZero()

	return !ask.IsZero()
}

// fullViewingKey returns the 96 byte encoding ak || nk || rivk.
func (k *orchardKey) fullViewingKey() ([]byte, error) {
	ask := k.spendAuthKey()
	defer ask.SetZero()

	if ask.IsZero() {
		return nil, errInvalidKey
	}

	var ak pallas.Point
	ak.ScalarMult(pallas.SpendAuthBase(), ask)

	// ask is negated when needed to give ak an even y, which leaves the
	// x-coordinate alone as the encoding.
	akBytes := ak.Bytes()
	akBytes[31] &^= 0x80

	nkWide := prfExpand(k.sk[:], []byte{orchardNk})
	defer zeroBytes(nkWide[:])
	nk := new(fp.Fp).SetBytesWide(&nkWide)

	rivkWide := prfExpand(k.sk[:], []byte{orchardRivk})
	defer zeroBytes(rivkWide[:])
	rivk := new(fq.Fq).SetBytesWide(&rivkWide)
	defer rivk.SetZero()

	nkBytes := nk.Bytes()
	rivkBytes := rivk.Bytes()

	payload := make([]byte, 0, 96)
	payload = append(payload, akBytes[:]...)
	payload = append(payload, nkBytes[:]...)
	payload = append(payload, rivkBytes[:]...)

	return payload, nil
}

// Zero wipes the node.
func (k *orchardKey) Zero() {
	zeroBytes(k.sk[:])
	zeroBytes(k.chainCode[:])
}
