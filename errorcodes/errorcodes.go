// Package errorcodes maps the errors of this module to the stable codes and
// process exit statuses reported by the command line tool.
package errorcodes

import (
	"errors"
	"io/fs"
	"os"

	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/juno-cash/juno-keys/keychain"
	"github.com/juno-cash/juno-keys/secretfile"
	"github.com/juno-cash/juno-keys/ufvk"
	"github.com/juno-cash/juno-keys/walletseed"
)

// Code is a stable, machine readable error code.
type Code string

const (
	ErrCodeSeedInvalid         Code = "seed_invalid"
	ErrCodeEntropyUnavailable  Code = "entropy_unavailable"
	ErrCodeNetworkInvalid      Code = "network_invalid"
	ErrCodeUAHRPInvalid        Code = "ua_hrp_invalid"
	ErrCodeCoinTypeInvalid     Code = "coin_type_invalid"
	ErrCodeAccountInvalid      Code = "account_invalid"
	ErrCodeDerivationExhausted Code = "derivation_exhausted"
	ErrCodeDuplicateTypecode   Code = "duplicate_typecode"
	ErrCodeMalformedPayload    Code = "malformed_payload"
	ErrCodeChecksumInvalid     Code = "checksum_invalid"
	ErrCodeIO                  Code = "io_error"
	ErrCodeInvalidRequest      Code = "invalid_request"
	ErrCodeInternal            Code = "internal"
)

// ErrInvalidRequest marks errors caused by a bad combination of arguments.
var ErrInvalidRequest = errors.New("invalid_request")

// mapping lists the sentinel behind every code. It is checked in order, so
// more specific errors come first.
var mapping = []struct {
	err  error
	code Code
}{
	{walletseed.ErrSeedInvalid, ErrCodeSeedInvalid},
	{walletseed.ErrEntropyUnavailable, ErrCodeEntropyUnavailable},
	{chainreg.ErrNetworkInvalid, ErrCodeNetworkInvalid},
	{chainreg.ErrAddressHRPInvalid, ErrCodeUAHRPInvalid},
	{chainreg.ErrCoinTypeInvalid, ErrCodeCoinTypeInvalid},
	{keychain.ErrAccountInvalid, ErrCodeAccountInvalid},
	{keychain.ErrDerivationExhausted, ErrCodeDerivationExhausted},
	{ufvk.ErrDuplicateTypecode, ErrCodeDuplicateTypecode},
	{ufvk.ErrMalformedPayload, ErrCodeMalformedPayload},
	{ufvk.ErrChecksumInvalid, ErrCodeChecksumInvalid},
	{keychain.ErrNoPools, ErrCodeInvalidRequest},
	{ErrInvalidRequest, ErrCodeInvalidRequest},
	{secretfile.ErrTargetExists, ErrCodeIO},
}

// exitStatus is the process exit status of every code. Zero is success.
var exitStatus = map[Code]int{
	ErrCodeInternal:            1,
	ErrCodeInvalidRequest:      2,
	ErrCodeSeedInvalid:         3,
	ErrCodeEntropyUnavailable:  4,
	ErrCodeNetworkInvalid:      5,
	ErrCodeUAHRPInvalid:        6,
	ErrCodeCoinTypeInvalid:     7,
	ErrCodeAccountInvalid:      8,
	ErrCodeDerivationExhausted: 9,
	ErrCodeDuplicateTypecode:   10,
	ErrCodeMalformedPayload:    11,
	ErrCodeChecksumInvalid:     12,
	ErrCodeIO:                  13,
}

// FromError returns the code of err. Unknown errors are internal.
func FromError(err error) Code {
	if err == nil {
		return ""
	}

	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return m.code
		}
	}

	var (
		pathErr *fs.PathError
		linkErr *os.LinkError
	)
	if errors.As(err, &pathErr) || errors.As(err, &linkErr) {
		return ErrCodeIO
	}

	return ErrCodeInternal
}

// ExitStatus returns the process exit status of the code.
func (c Code) ExitStatus() int {
	if c == "" {
		return 0
	}
	if status, ok := exitStatus[c]; ok {
		return status
	}

	return exitStatus[ErrCodeInternal]
}

// Codes returns every known code.
func Codes() []Code {
	codes := make([]Code, 0, len(exitStatus))
	for code := range exitStatus {
		codes = append(codes, code)
	}

	return codes
}
