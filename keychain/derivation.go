package keychain

import (
	"errors"
	"fmt"

	"github.com/juno-cash/juno-keys/chainreg"
)

const (
	// BIP0044Purpose is the purpose used for the transparent pool. All
	// transparent keys are derived below m/44'/coinType'/account'.
	BIP0044Purpose = 44

	// ZIP0032Purpose is the purpose used for the shielded pools. Shielded
	// keys are derived below m_pool/32'/coinType'/account'.
	ZIP0032Purpose = 32

	// MaxDerivationAttempts is the number of consecutive child indexes we
	// try for a single path element before giving up. Each failed attempt
	// has a probability far below 2^-120, so hitting this bound means the
	// input is pathological.
	MaxDerivationAttempts = 4
)

var (
	// ErrDerivationExhausted is returned when every candidate index for a
	// path element produced an invalid key, or the master key itself was
	// unusable.
	ErrDerivationExhausted = errors.New("derivation_exhausted")

	// ErrAccountInvalid is returned when the account index does not fit
	// into a hardened path element.
	ErrAccountInvalid = errors.New("account_invalid")

	// ErrNoPools is returned when a derivation is requested for an empty
	// pool selection.
	ErrNoPools = errors.New("no pools selected")

	// errInvalidKey is returned by a single derivation step whose output
	// is not a usable key. The step is retried at the next index.
	errInvalidKey = errors.New("invalid derived key")
)

// KeyPath is the hardened three element path that locates the account level
// viewing key of a pool:
//
//   - m/purpose'/coinType'/account'
type KeyPath struct {
	// Purpose is the first path element, fixed per pool.
	Purpose uint32

	// CoinType is the second path element, fixed per network.
	CoinType uint32

	// Account is the account index within the coin type.
	Account uint32
}

// String renders the path in the usual apostrophe notation.
func (k KeyPath) String() string {
	return fmt.Sprintf("m/%d'/%d'/%d'", k.Purpose, k.CoinType, k.Account)
}

// ValidateAccount makes sure the account index can be used as a hardened path
// element.
func ValidateAccount(account uint32) error {
	if account >= chainreg.HardenedKeyStart {
		return fmt.Errorf("%w: %d", ErrAccountInvalid, account)
	}

	return nil
}

// deriveHardened runs derive for the hardened form of index. If derive
// reports errInvalidKey the next index is tried, up to MaxDerivationAttempts
// candidates in total. The walk is deterministic, so the same input always
// lands on the same index. The index that was finally used is returned along
// with the key.
func deriveHardened[K any](index uint32,
	derive func(hardened uint32) (K, error)) (K, uint32, error) {

	var empty K
	for attempt := 0; attempt < MaxDerivationAttempts; attempt++ {
		candidate := index + uint32(attempt)
		if candidate >= chainreg.HardenedKeyStart {
			return empty, 0, fmt.Errorf("%w: index %d overflows "+
				"hardened range", ErrDerivationExhausted,
				candidate)
		}

		key, err := derive(chainreg.HardenedKeyStart + candidate)
		switch {
		case errors.Is(err, errInvalidKey):
			log.Debugf("Index %d' produced an invalid key, trying "+
				"next index", candidate)
			continue

		case err != nil:
			return empty, 0, err
		}

		return key, candidate, nil
	}

	return empty, 0, fmt.Errorf("%w: %d candidates after index %d were "+
		"invalid", ErrDerivationExhausted, MaxDerivationAttempts, index)
}
