package keychain

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/juno-cash/juno-keys/ufvk"
)

// transparentPool derives the account level extended public key of BIP-44,
// which is the transparent item of a unified viewing key.
type transparentPool struct{}

// Typecode returns the P2PKH typecode.
func (transparentPool) Typecode() uint32 { return ufvk.TypeP2PKH }

// Name returns the pool name.
func (transparentPool) Name() string { return "transparent" }

// Purpose returns the BIP-44 purpose.
func (transparentPool) Purpose() uint32 { return BIP0044Purpose }

// DeriveViewingKey returns the chain code followed by the compressed public
// key of m/44'/coinType'/account'.
func (p transparentPool) DeriveViewingKey(seed []byte, coinType,
	account uint32) ([]byte, error) {

	// The version bytes of the network parameters are never serialized,
	// so any parameter set works here.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	switch {
	case errors.Is(err, hdkeychain.ErrUnusableSeed):
		return nil, fmt.Errorf("%w: unusable transparent master key",
			ErrDerivationExhausted)

	case err != nil:
		return nil, err
	}
	defer master.Zero()

	path := KeyPath{
		Purpose:  p.Purpose(),
		CoinType: coinType,
		Account:  account,
	}

	key := master
	for _, elem := range []uint32{path.Purpose, path.CoinType, path.Account} {
		parent := key
		key, _, err = deriveHardened(elem,
			func(i uint32) (*hdkeychain.ExtendedKey, error) {
				child, err := parent.Derive(i)
				if errors.Is(err, hdkeychain.ErrInvalidChild) {
					return nil, errInvalidKey
				}

				return child, err
			},
		)
		if parent != master {
			parent.Zero()
		}
		if err != nil {
			return nil, err
		}
	}
	defer key.Zero()

	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, 65)
	payload = append(payload, key.ChainCode()...)
	payload = append(payload, pubKey.SerializeCompressed()...)

	log.Tracef("Derived transparent viewing key at %v", path)

	return payload, nil
}
