// Package bech32m wraps the btcutil bech32 codec for long, byte oriented
// bech32m strings. Unified viewing keys and network tagged seeds are both
// longer than the 90 characters BIP-173 allows, and both must reject the
// original bech32 checksum constant.
package bech32m

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

var (
	// ErrChecksum is returned when the string is not valid bech32m text:
	// a bad character, mixed case, a missing separator or a checksum that
	// does not verify under the bech32m constant.
	ErrChecksum = errors.New("invalid bech32m checksum")

	// ErrRegroup is returned when the 5 bit payload does not regroup into
	// whole bytes.
	ErrRegroup = errors.New("invalid bech32m padding")
)

// Encode converts data into 5 bit groups and encodes it as bech32m with the
// given human readable prefix.
func Encode(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}

	return bech32.EncodeM(hrp, conv)
}

// Decode parses a bech32m string of arbitrary length and returns the lower
// case prefix and the regrouped payload bytes.
func Decode(s string) (string, []byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrChecksum, err)
	}

	// DecodeNoLimit accepts both checksum constants. Re-encoding with the
	// bech32m constant reproduces the input only if it used bech32m.
	reencoded, err := bech32.EncodeM(hrp, data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	if reencoded != strings.ToLower(s) {
		return "", nil, fmt.Errorf("%w: bech32 checksum constant "+
			"used instead of bech32m", ErrChecksum)
	}

	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrRegroup, err)
	}

	return hrp, conv, nil
}
