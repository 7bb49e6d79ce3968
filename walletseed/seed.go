// Package walletseed generates, validates and encodes the root seed of a
// wallet. The package never persists a seed itself.
package walletseed

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/juno-cash/juno-keys/internal/bech32m"
	"github.com/tyler-smith/go-bip39"
)

const (
	// MinSeedBytes is the smallest accepted seed.
	MinSeedBytes = 32

	// RecommendedSeedBytes is the default and recommended seed size.
	RecommendedSeedBytes = 64
)

var (
	// ErrSeedInvalid is returned when a seed has an unsupported length or
	// cannot be decoded.
	ErrSeedInvalid = errors.New("seed_invalid")

	// ErrEntropyUnavailable is returned when the random source fails.
	ErrEntropyUnavailable = errors.New("entropy_unavailable")
)

// allowedSizes are the seed lengths accepted anywhere in this module.
var allowedSizes = []int{MinSeedBytes, RecommendedSeedBytes}

// Seed is the root secret all keys are derived from. Holders must call Zero
// once they no longer need it.
type Seed []byte

// Zero overwrites the seed bytes in place.
func (s Seed) Zero() {
	for i := range s {
		s[i] = 0
	}

	// Keep the slice alive until the loop has run so the writes cannot be
	// dropped.
	runtime.KeepAlive(s)
}

// Len returns the number of seed bytes.
func (s Seed) Len() int {
	return len(s)
}

// String never reveals the seed, so a seed passed to a formatting verb by
// mistake does not end up in logs.
func (s Seed) String() string {
	return fmt.Sprintf("Seed(%d bytes)", len(s))
}

// GoString implements fmt.GoStringer with the same redaction as String.
func (s Seed) GoString() string {
	return s.String()
}

// AllowedSizes returns the accepted seed lengths in bytes.
func AllowedSizes() []int {
	return append([]int(nil), allowedSizes...)
}

// ValidateSize returns ErrSeedInvalid unless size is an accepted seed length.
func ValidateSize(size int) error {
	for _, allowed := range allowedSizes {
		if size == allowed {
			return nil
		}
	}

	return fmt.Errorf("%w: length %d, want one of %v", ErrSeedInvalid,
		size, allowedSizes)
}

// Generate returns a fresh seed of the given size read from the operating
// system's secure random source.
func Generate(size int) (Seed, error) {
	return GenerateFrom(rand.Reader, size)
}

// GenerateFrom returns a fresh seed of the given size read from r.
func GenerateFrom(r io.Reader, size int) (Seed, error) {
	if err := ValidateSize(size); err != nil {
		return nil, err
	}

	seed := make(Seed, size)
	if _, err := io.ReadFull(r, seed); err != nil {
		seed.Zero()
		return nil, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}

	log.Debugf("Generated new %d byte seed", size)

	return seed, nil
}

// EncodeBase64 renders the seed as standard, padded base64.
func EncodeBase64(seed Seed) string {
	return base64.StdEncoding.EncodeToString(seed)
}

// DecodeBase64 parses a base64 seed. Surrounding white space is ignored, the
// encoding must be canonical and the decoded length must be accepted.
func DecodeBase64(s string) (Seed, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(
		strings.TrimSpace(s),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64", ErrSeedInvalid)
	}

	seed := Seed(raw)
	if err := ValidateSize(len(seed)); err != nil {
		seed.Zero()
		return nil, err
	}

	return seed, nil
}

// EncodeBech32 renders the seed as bech32m text tagged with the seed prefix
// of the given network.
func EncodeBech32(seed Seed, net chainreg.Network) (string, error) {
	if err := ValidateSize(len(seed)); err != nil {
		return "", err
	}

	params, err := chainreg.ParamsFor(net)
	if err != nil {
		return "", err
	}

	return bech32m.Encode(params.SeedHRP, seed)
}

// DecodeBech32 parses a network tagged seed and makes sure it was exported
// for the expected network.
func DecodeBech32(s string, expected chainreg.Network) (Seed, error) {
	hrp, raw, err := bech32m.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedInvalid, err)
	}
	seed := Seed(raw)

	net, err := chainreg.NetworkForSeedHRP(hrp)
	if err != nil {
		seed.Zero()
		return nil, err
	}
	if net != expected {
		seed.Zero()
		return nil, fmt.Errorf("%w: seed is for %v, expected %v",
			chainreg.ErrNetworkInvalid, net, expected)
	}

	if err := ValidateSize(len(seed)); err != nil {
		seed.Zero()
		return nil, err
	}

	return seed, nil
}

// FromMnemonic turns a BIP-39 mnemonic and optional passphrase into a 64
// byte seed. The mnemonic checksum is verified first.
func FromMnemonic(mnemonic, passphrase string) (Seed, error) {
	words := strings.Join(strings.Fields(mnemonic), " ")

	raw, err := bip39.NewSeedWithErrorChecking(words, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mnemonic", ErrSeedInvalid)
	}

	log.Debugf("Derived seed from %d word mnemonic",
		len(strings.Fields(words)))

	return Seed(raw), nil
}
