package walletseed

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestGenerate checks the accepted sizes and that consecutive seeds differ.
func TestGenerate(t *testing.T) {
	t.Parallel()

	for _, size := range AllowedSizes() {
		a, err := Generate(size)
		require.NoError(t, err)
		require.Equal(t, size, a.Len())

		b, err := Generate(size)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	}

	for _, size := range []int{0, 16, 31, 33, 63, 65, 252} {
		_, err := Generate(size)
		require.ErrorIs(t, err, ErrSeedInvalid, "size %d", size)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy for you")
}

// TestGenerateEntropyUnavailable makes sure a broken or short random source is
// surfaced as ErrEntropyUnavailable.
func TestGenerateEntropyUnavailable(t *testing.T) {
	t.Parallel()

	_, err := GenerateFrom(failingReader{}, RecommendedSeedBytes)
	require.ErrorIs(t, err, ErrEntropyUnavailable)

	short := bytes.NewReader(make([]byte, 10))
	_, err = GenerateFrom(short, RecommendedSeedBytes)
	require.ErrorIs(t, err, ErrEntropyUnavailable)
}

// TestBase64RoundTrip checks decode(encode(seed)) == seed for every accepted
// size.
func TestBase64RoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.SampledFrom(AllowedSizes()).Draw(rt, "size")
		raw := rapid.SliceOfN(rapid.Byte(), size, size).Draw(rt, "seed")

		encoded := EncodeBase64(Seed(raw))
		decoded, err := DecodeBase64(encoded + "\n")
		require.NoError(rt, err)
		require.Equal(rt, raw, []byte(decoded))
	})
}

// TestBase64InvalidLength checks that every other length is rejected.
func TestBase64InvalidLength(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(0, 300).Filter(func(n int) bool {
			return ValidateSize(n) != nil
		}).Draw(rt, "size")
		raw := rapid.SliceOfN(rapid.Byte(), size, size).Draw(rt, "raw")

		_, err := DecodeBase64(base64.StdEncoding.EncodeToString(raw))
		require.ErrorIs(rt, err, ErrSeedInvalid)
	})
}

// TestBase64InvalidEncoding checks malformed text.
func TestBase64InvalidEncoding(t *testing.T) {
	t.Parallel()

	valid := EncodeBase64(make(Seed, 32))

	tests := []string{
		"",
		"!!!!",
		valid[:len(valid)-1],
		strings.TrimRight(valid, "="),
		valid + "AA==",
	}
	for _, input := range tests {
		_, err := DecodeBase64(input)
		require.ErrorIs(t, err, ErrSeedInvalid, "%q", input)
	}
}

// TestBech32RoundTrip checks the network tagged text form.
func TestBech32RoundTrip(t *testing.T) {
	t.Parallel()

	seed := Seed(bytes.Repeat([]byte{0xab}, RecommendedSeedBytes))

	for _, net := range chainreg.Networks() {
		encoded, err := EncodeBech32(seed, net)
		require.NoError(t, err)

		params, err := chainreg.ParamsFor(net)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(encoded, params.SeedHRP+"1"))

		decoded, err := DecodeBech32(encoded, net)
		require.NoError(t, err)
		require.Equal(t, seed, decoded)
	}

	mainnet, err := EncodeBech32(seed, chainreg.Mainnet)
	require.NoError(t, err)

	_, err = DecodeBech32(mainnet, chainreg.Testnet)
	require.ErrorIs(t, err, chainreg.ErrNetworkInvalid)

	last := mainnet[len(mainnet)-1]
	swap := "q"
	if last == 'q' {
		swap = "p"
	}
	_, err = DecodeBech32(mainnet[:len(mainnet)-1]+swap, chainreg.Mainnet)
	require.ErrorIs(t, err, ErrSeedInvalid)

	_, err = EncodeBech32(seed[:40], chainreg.Mainnet)
	require.ErrorIs(t, err, ErrSeedInvalid)
}

// TestFromMnemonic checks the first BIP-39 reference vector.
func TestFromMnemonic(t *testing.T) {
	t.Parallel()

	mnemonic := strings.Repeat("abandon ", 11) + "about"
	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada" +
		"38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf14163" +
		"0c7a3c4ab7c81b2f001698e7463b04")

	seed, err := FromMnemonic("  "+mnemonic+"\n", "TREZOR")
	require.NoError(t, err)
	require.Equal(t, want, []byte(seed))
	require.NoError(t, ValidateSize(seed.Len()))

	_, err = FromMnemonic(strings.Repeat("abandon ", 12), "")
	require.ErrorIs(t, err, ErrSeedInvalid)
}

// TestSeedRedaction makes sure formatting a seed never prints its bytes.
func TestSeedRedaction(t *testing.T) {
	t.Parallel()

	seed := Seed(bytes.Repeat([]byte{0x42}, 32))
	for _, verb := range []string{"%v", "%s", "%#v"} {
		out := fmt.Sprintf(verb, seed)
		require.Equal(t, "Seed(32 bytes)", out)
	}

	seed.Zero()
	require.Equal(t, make(Seed, 32), seed)
}
