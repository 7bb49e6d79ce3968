// Package ufvk encodes and decodes unified full viewing keys: a network tagged
// bech32m string bundling one viewing key item per pool.
//
// The container follows the ZIP-316 layout. Items are framed as
// CompactSize(typecode) || CompactSize(length) || payload in ascending
// typecode order, a 16 byte block holding the human readable prefix is
// appended, and the whole message is diffused with F4Jumble before the
// bech32m encoding.
package ufvk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/btcsuite/btcd/wire"
	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/juno-cash/juno-keys/internal/bech32m"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Typecodes of the pools known to this package. Items with any other
// typecode are carried as opaque data.
const (
	TypeP2PKH   uint32 = 0x00
	TypeP2SH    uint32 = 0x01
	TypeSapling uint32 = 0x02
	TypeOrchard uint32 = 0x03
)

// paddingLen is the length of the block that carries the prefix at the end
// of the jumbled message.
const paddingLen = 16

var (
	// ErrDuplicateTypecode is returned by Encode when two items share a
	// typecode.
	ErrDuplicateTypecode = errors.New("duplicate_typecode")

	// ErrMalformedPayload is returned when the decoded bytes are not a
	// well formed item sequence, or when a bundle cannot be encoded.
	ErrMalformedPayload = errors.New("malformed_payload")

	// ErrChecksumInvalid is returned when the text is not valid bech32m.
	ErrChecksumInvalid = errors.New("checksum_invalid")

	// ErrPrefixMismatch is returned when a key was encoded for a different
	// network than the caller expected.
	ErrPrefixMismatch = errors.New("prefix_mismatch")
)

// PrefixMismatchError reports a viewing key for the wrong network. It
// matches both ErrPrefixMismatch and chainreg.ErrNetworkInvalid.
type PrefixMismatchError struct {
	Expected chainreg.Network
	Actual   chainreg.Network
}

// Error implements the error interface.
func (e *PrefixMismatchError) Error() string {
	return fmt.Sprintf("%v: viewing key is for %v, expected %v",
		chainreg.ErrNetworkInvalid, e.Actual, e.Expected)
}

// Is lets errors.Is match the sentinel errors this error stands for.
func (e *PrefixMismatchError) Is(target error) bool {
	return target == ErrPrefixMismatch ||
		target == chainreg.ErrNetworkInvalid
}

// Item is the viewing capability of a single pool.
type Item struct {
	// Typecode identifies the pool.
	Typecode uint32

	// Data is the raw item payload.
	Data []byte
}

// Bundle is a set of items for a single network.
type Bundle struct {
	Network chainreg.Network
	Items   []Item
}

// Item returns the item with the given typecode, if present.
func (b *Bundle) Item(typecode uint32) fn.Option[Item] {
	for _, item := range b.Items {
		if item.Typecode == typecode {
			return fn.Some(item)
		}
	}

	return fn.None[Item]()
}

// Typecodes returns the typecodes of all items in bundle order.
func (b *Bundle) Typecodes() []uint32 {
	codes := make([]uint32, 0, len(b.Items))
	for _, item := range b.Items {
		codes = append(codes, item.Typecode)
	}

	return codes
}

// TypecodeName returns a short name for the typecodes this package knows and
// "unknown" for all others.
func TypecodeName(typecode uint32) string {
	switch typecode {
	case TypeP2PKH:
		return "transparent"
	case TypeP2SH:
		return "p2sh"
	case TypeSapling:
		return "sapling"
	case TypeOrchard:
		return "orchard"
	default:
		return "unknown"
	}
}

// sortedItems returns a copy of the items sorted by typecode, or an error if
// two of them share a typecode.
func sortedItems(items []Item) ([]Item, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: bundle has no items",
			ErrMalformedPayload)
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Typecode < sorted[j].Typecode
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Typecode == sorted[i-1].Typecode {
			return nil, fmt.Errorf("%w: typecode %d",
				ErrDuplicateTypecode, sorted[i].Typecode)
		}
	}

	return sorted, nil
}

// padding returns the prefix block appended to every message.
func padding(hrp string) ([]byte, error) {
	if len(hrp) > paddingLen {
		return nil, fmt.Errorf("%w: prefix %q longer than %d bytes",
			ErrMalformedPayload, hrp, paddingLen)
	}

	pad := make([]byte, paddingLen)
	copy(pad, hrp)

	return pad, nil
}

// Encode serializes the bundle into its text form. The bundle itself is not
// modified.
func Encode(b *Bundle) (string, error) {
	params, err := chainreg.ParamsFor(b.Network)
	if err != nil {
		return "", err
	}

	items, err := sortedItems(b.Items)
	if err != nil {
		return "", err
	}

	encoded, err := pack(params.UFVKHRP, items)
	if err != nil {
		return "", err
	}

	log.Debugf("Encoded %d item viewing key for %v", len(items),
		b.Network)

	return encoded, nil
}

// pack frames the sorted items under the human readable prefix hrp, jumbles
// the message and returns its bech32m encoding.
func pack(hrp string, items []Item) (string, error) {
	var msg bytes.Buffer
	for _, item := range items {
		err := wire.WriteVarInt(&msg, 0, uint64(item.Typecode))
		if err != nil {
			return "", err
		}
		err = wire.WriteVarInt(&msg, 0, uint64(len(item.Data)))
		if err != nil {
			return "", err
		}
		msg.Write(item.Data)
	}

	pad, err := padding(hrp)
	if err != nil {
		return "", err
	}
	msg.Write(pad)

	jumbled, err := f4Jumble(msg.Bytes())
	if err != nil {
		return "", err
	}

	encoded, err := bech32m.Encode(hrp, jumbled)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return encoded, nil
}

// Decode parses a viewing key. If expected is set, a key for any other
// network is rejected with a *PrefixMismatchError.
func Decode(s string, expected fn.Option[chainreg.Network]) (*Bundle,
	error) {

	hrp, jumbled, err := bech32m.Decode(s)
	switch {
	case errors.Is(err, bech32m.ErrRegroup):
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)

	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrChecksumInvalid, err)
	}

	net, err := chainreg.NetworkForUFVKHRP(hrp)
	if err != nil {
		return nil, err
	}

	var mismatch error
	expected.WhenSome(func(want chainreg.Network) {
		if want != net {
			mismatch = &PrefixMismatchError{
				Expected: want,
				Actual:   net,
			}
		}
	})
	if mismatch != nil {
		return nil, mismatch
	}

	items, err := unpack(hrp, jumbled)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Network: net,
		Items:   items,
	}, nil
}

// unpack reverses the jumbling of a decoded message, checks the padding
// against hrp and parses the items.
func unpack(hrp string, jumbled []byte) ([]Item, error) {
	msg, err := f4JumbleInv(jumbled)
	if err != nil {
		return nil, err
	}

	pad, err := padding(hrp)
	if err != nil {
		return nil, err
	}
	body, tail := msg[:len(msg)-paddingLen], msg[len(msg)-paddingLen:]
	if !bytes.Equal(tail, pad) {
		return nil, fmt.Errorf("%w: padding does not match prefix",
			ErrMalformedPayload)
	}

	return parseItems(body)
}

// parseItems reads the item sequence. Typecodes must be strictly ascending
// and the sequence must consume body exactly.
func parseItems(body []byte) ([]Item, error) {
	r := bytes.NewReader(body)

	var items []Item
	for r.Len() > 0 {
		typecode, err := readVarInt(r, "typecode")
		if err != nil {
			return nil, err
		}
		if typecode > math.MaxUint32 {
			return nil, fmt.Errorf("%w: typecode %d out of range",
				ErrMalformedPayload, typecode)
		}

		length, err := readVarInt(r, "length")
		if err != nil {
			return nil, err
		}
		if length > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: item %d claims %d bytes, "+
				"%d left", ErrMalformedPayload, typecode,
				length, r.Len())
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload,
				err)
		}

		tc := uint32(typecode)
		if len(items) > 0 && tc <= items[len(items)-1].Typecode {
			return nil, fmt.Errorf("%w: typecode %d after %d",
				ErrMalformedPayload, tc,
				items[len(items)-1].Typecode)
		}

		items = append(items, Item{Typecode: tc, Data: data})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrMalformedPayload)
	}

	return items, nil
}

func readVarInt(r io.Reader, field string) (uint64, error) {
	v, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrMalformedPayload,
			field, err)
	}

	return v, nil
}
