package ufvk

import (
	"encoding/binary"
	"fmt"

	"github.com/dchest/blake2b"
)

const (
	// minJumbleLen and maxJumbleLen bound the message length accepted by
	// the F4Jumble permutation.
	minJumbleLen = 48
	maxJumbleLen = 4194368

	// hashLen is the output length of a single BLAKE2b invocation.
	hashLen = blake2b.Size
)

var (
	jumbleHTag = []byte("UA_F4Jumble_H")
	jumbleGTag = []byte("UA_F4Jumble_G")
)

// jumblePerson builds the 16 byte BLAKE2b personalization of one round
// function invocation.
func jumblePerson(tag []byte, round byte, counter uint16) []byte {
	person := make([]byte, 0, blake2b.PersonSize)
	person = append(person, tag...)
	person = append(person, round)

	var ctr [2]byte
	binary.LittleEndian.PutUint16(ctr[:], counter)

	return append(person, ctr[:]...)
}

// jumbleHash returns the outLen byte personalized BLAKE2b digest of u,
// appended to dst.
func jumbleHash(dst, person, u []byte, outLen int) []byte {
	h, err := blake2b.New(&blake2b.Config{
		Size:   uint8(outLen),
		Person: person,
	})
	if err != nil {
		// outLen is at most hashLen and the personalization is 16
		// bytes.
		panic(err)
	}
	_, _ = h.Write(u)

	return h.Sum(dst)
}

// jumbleH is the round function that compresses the right half into the
// length of the left half.
func jumbleH(round byte, u []byte, outLen int) []byte {
	return jumbleHash(nil, jumblePerson(jumbleHTag, round, 0), u, outLen)
}

// jumbleG is the round function that expands the left half into the length
// of the right half. Block j is personalized with the little endian counter
// j.
func jumbleG(round byte, u []byte, outLen int) []byte {
	out := make([]byte, 0, outLen+hashLen)
	for j := 0; len(out) < outLen; j++ {
		out = jumbleHash(
			out, jumblePerson(jumbleGTag, round, uint16(j)), u,
			hashLen,
		)
	}

	return out[:outLen]
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// splitLens returns the left and right half lengths for a message of length
// n.
func splitLens(n int) (int, int) {
	left := n / 2
	if left > hashLen {
		left = hashLen
	}

	return left, n - left
}

func checkJumbleLen(n int) error {
	if n < minJumbleLen || n > maxJumbleLen {
		return fmt.Errorf("%w: jumble length %d outside [%d, %d]",
			ErrMalformedPayload, n, minJumbleLen, maxJumbleLen)
	}

	return nil
}

// f4Jumble applies the four round unkeyed Feistel permutation to msg and
// returns the result in a new slice. Every output byte depends on every
// input byte.
func f4Jumble(msg []byte) ([]byte, error) {
	if err := checkJumbleLen(len(msg)); err != nil {
		return nil, err
	}

	leftLen, rightLen := splitLens(len(msg))
	out := append([]byte(nil), msg...)
	a, b := out[:leftLen], out[leftLen:]

	xorInto(b, jumbleG(0, a, rightLen))
	xorInto(a, jumbleH(0, b, leftLen))
	xorInto(b, jumbleG(1, a, rightLen))
	xorInto(a, jumbleH(1, b, leftLen))

	return out, nil
}

// f4JumbleInv is the inverse of f4Jumble.
func f4JumbleInv(msg []byte) ([]byte, error) {
	if err := checkJumbleLen(len(msg)); err != nil {
		return nil, err
	}

	leftLen, rightLen := splitLens(len(msg))
	out := append([]byte(nil), msg...)
	c, d := out[:leftLen], out[leftLen:]

	xorInto(c, jumbleH(1, d, leftLen))
	xorInto(d, jumbleG(1, c, rightLen))
	xorInto(c, jumbleH(0, d, leftLen))
	xorInto(d, jumbleG(0, c, rightLen))

	return out, nil
}
