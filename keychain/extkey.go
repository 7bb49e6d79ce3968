package keychain

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"runtime"
	"slices"

	"github.com/dchest/blake2b"
	"github.com/juno-cash/juno-keys/chainreg"
)

// expandSeedPerson personalizes PRF^expand, which splits a spending key into
// its components and drives shielded child derivation.
const expandSeedPerson = "Zcash_ExpandSeed"

// shieldedNode is a node of a shielded key tree. Shielded trees have no
// public derivation, so every child is hardened.
type shieldedNode[K any] interface {
	// child derives the hardened child at index. A child that is not a
	// usable key is reported as errInvalidKey.
	child(index uint32) (K, error)

	// Zero wipes the node.
	Zero()
}

// personalHash returns the 64 byte BLAKE2b digest of the concatenated inputs
// under the given personalization.
func personalHash(person string, data ...[]byte) [blake2b.Size]byte {
	h, err := blake2b.New(&blake2b.Config{
		Size:   blake2b.Size,
		Person: []byte(person),
	})
	if err != nil {
		// Every personalization is a 16 byte constant.
		panic(err)
	}
	for _, d := range data {
		_, _ = h.Write(d)
	}

	var out [blake2b.Size]byte
	h.Sum(out[:0])

	return out
}

// prfExpand is PRF^expand(sk, t), the pseudo random function that expands a
// spending key or chain code under the domain bytes t.
func prfExpand(sk []byte, t ...[]byte) [blake2b.Size]byte {
	return personalHash(expandSeedPerson, append([][]byte{sk}, t...)...)
}

// checkHardened refuses non hardened indexes.
func checkHardened(index uint32) error {
	if index < chainreg.HardenedKeyStart {
		return fmt.Errorf("shielded keys only have hardened "+
			"children, got index %d", index)
	}

	return nil
}

func leIndex(index uint32) []byte {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)

	return idx[:]
}

// derivePath walks the hardened path below the master, retrying every element
// at the next index should the pool reject the resulting key. The leaf is
// handed to leaf and its result returned. All intermediate nodes are zeroed,
// the master is left to the caller.
func derivePath[K shieldedNode[K]](master K, path KeyPath,
	leaf func(K) ([]byte, error)) ([]byte, error) {

	parent := master
	for i, elem := range []uint32{path.Purpose, path.CoinType} {
		next, _, err := deriveHardened(elem, parent.child)
		if i > 0 {
			parent.Zero()
		}
		if err != nil {
			return nil, err
		}
		parent = next
	}
	defer parent.Zero()

	payload, used, err := deriveHardened(path.Account,
		func(i uint32) ([]byte, error) {
			account, err := parent.child(i)
			if err != nil {
				return nil, err
			}
			defer account.Zero()

			return leaf(account)
		},
	)
	if err != nil {
		return nil, err
	}
	if used != path.Account {
		log.Infof("Path %v resolved to account index %d'",
			path, used)
	}

	return payload, nil
}

// leToInt reads b as a little endian integer.
func leToInt(b []byte) *big.Int {
	be := slices.Clone(b)
	slices.Reverse(be)
	defer zeroBytes(be)

	return new(big.Int).SetBytes(be)
}

// intToLE32 writes x as a 32 byte little endian integer. x must be below
// 2^256.
func intToLE32(x *big.Int) [32]byte {
	var out [32]byte
	x.FillBytes(out[:])
	slices.Reverse(out[:])

	return out
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
