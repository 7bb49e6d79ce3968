package keychain

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/juno-cash/juno-keys/internal/pallas"
	"github.com/juno-cash/juno-keys/ufvk"
	"github.com/juno-cash/juno-keys/walletseed"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	zeroSeed = make([]byte, walletseed.RecommendedSeedBytes)

	// The account 0 testnet viewing key items of the all zero seed,
	// computed with the zcash-test-vectors reference implementation.
	goldenTransparent = "d14447fda984162be2515843a5157c0bb63e3c761f844b" +
		"1a5c26448249ff468702ae654712bbc2f01546ad373f969136beabbf5fd" +
		"17ba8c48888bf5a291f83e6f1"
	goldenSapling = "c877ac7b3599d9fe688d8dad0d9f87386138dcb827e9f9d6b2" +
		"83432e53bfe707771c07368125c6e8f493da838f24df151c808d90a077aa" +
		"0ba0997d5b23a8bad81285ebc477a2288ee5016c6419339b48a25b739630" +
		"6bb7043dffb1f0221700b44bc429f76d48a3debe832a98160ee45e0bbd28" +
		"c55648d67d6dbf58ebe7f57e14"
	goldenOrchard = "fda15bd1421674265df23e8d853f3b546ba4c695179f665fb4" +
		"5d7baffc7d8314327969ce25e1d151dea33d274272a5360eb7b8f7f85671" +
		"afdde014c1c5a5b40c244e4c21fe78b095d80781df2de7d3f001b82c130b" +
		"57aab8be0567989311ce0f"

	// goldenUFVK bundles all three items, goldenUFVKNoSapling only the
	// transparent and orchard ones.
	goldenUFVK = "jviewtest146d3cefqc270hnlsfj6hup8hk3g54vkk9mrnaje6gaym" +
		"c5fy6ptggvsdljrnc7mednz8jr3v3xgvpggaz8dm7a6xlt65tq06jkkqatdd" +
		"hu8ad7pu8wjr5ew3sunueq62wenwu7gt5d3xhn8xtrheekxyjp8sh72thpt2" +
		"64setw3zu0dqexvkvp3n6suna9u26wgk2endrw5hgre3yvu4tzekt2h36n6d" +
		"n7yppk985c24ryrhem3uytwk0q69mxvesa39m7gpdgaz3kr7x47ckt8ydrda" +
		"65m20tw0x5d2m6agelwx6dqte2ge5232ckys9gxptjr3c9yqes2u9y5c5nr4" +
		"jh2k6td9evy2eqnglatcncprw972ykml55t59he68m3l7mp0d5su0lmefyq9" +
		"yldcqmvqf20hruv5tcv5zd5cacmu30h9js8e3w8ent2c8vf6l6jdnrgm5ksd" +
		"w9j40f8les92mmeaap5w4atx3yz3kz7z95anksdg"
	goldenUFVKNoSapling = "jviewtest12cvl4895q0l02gts54etzues4fundxzkm9" +
		"u4kgms8d0wr55ag92axeu6k09y88s3d74e44ekued79qe3udcwrmkv7vqk9s" +
		"ypxk0ru7yd9k77mlwsfypsklr8yh7sz5k59hlepmd5pvcmsu7upyx3f7j7gk" +
		"s48js886kcvrs2h45he4glcs7s9m6gjcpupwqszhtawdn9rc30nmeaunshgl" +
		"gvsk00sj4m3uksz0yghwemz2z4tw3lr6tpx7czs2602ta70z6w2d72tdq2zv" +
		"ez6dg9d4lwzgjn7gn53p3f"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)

	return b
}

// TestDeriveAccountGolden checks a fixed seed against independently computed
// viewing key items and their encoding, for the default pools and for a
// restricted selection.
func TestDeriveAccountGolden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opts      []DeriveOption
		typecodes []uint32
		items     []string
		encoded   string
	}{
		{
			name: "all pools",
			typecodes: []uint32{
				ufvk.TypeP2PKH, ufvk.TypeSapling,
				ufvk.TypeOrchard,
			},
			items: []string{
				goldenTransparent, goldenSapling, goldenOrchard,
			},
			encoded: goldenUFVK,
		},
		{
			name: "transparent and orchard",
			opts: []DeriveOption{WithPools(Orchard, Transparent)},
			typecodes: []uint32{
				ufvk.TypeP2PKH, ufvk.TypeOrchard,
			},
			items:   []string{goldenTransparent, goldenOrchard},
			encoded: goldenUFVKNoSapling,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			bundle, err := DeriveAccount(
				zeroSeed, chainreg.Testnet, 0, test.opts...,
			)
			require.NoError(t, err)
			require.Equal(t, test.typecodes, bundle.Typecodes())

			for i, item := range test.items {
				require.Equal(t, mustHex(t, item),
					bundle.Items[i].Data)
			}

			encoded, err := ufvk.Encode(bundle)
			require.NoError(t, err)
			require.Equal(t, test.encoded, encoded)

			decoded, err := ufvk.Decode(
				encoded, fn.Some(chainreg.Testnet),
			)
			require.NoError(t, err)
			require.Equal(t, bundle, decoded)
		})
	}
}

// TestDeriveOrchardOnly pins the single item orchard viewing key, the shape
// that orchard only Juno wallets import.
func TestDeriveOrchardOnly(t *testing.T) {
	t.Parallel()

	const want = "jview1js32zyfmmd4yzqy04pf9qwqrj47w3uvekjzs7pzfh2ars2v0" +
		"ggzg74cd39lw9px0tr0nq7e86xevgx7fqxzslmlfqcaw28wj75prfgd0xdae" +
		"7fywxl99n035kejzpj9upard7kegh3epjna7efmzy392cyr7a2hs4khc00zq" +
		"0j2jqnnnz0usmuc92r5un"

	seed := bytes.Repeat([]byte{0x07}, walletseed.RecommendedSeedBytes)
	bundle, err := DeriveAccount(
		seed, chainreg.Mainnet, 0, WithPools(Orchard),
	)
	require.NoError(t, err)

	encoded, err := ufvk.Encode(bundle)
	require.NoError(t, err)
	require.Equal(t, want, encoded)
}

// TestDeriveAccountDeterministic derives random accounts twice, once with and
// once without concurrency, and expects identical bundles.
func TestDeriveAccountDeterministic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.SampledFrom(walletseed.AllowedSizes()).Draw(
			rt, "size",
		)
		seed := rapid.SliceOfN(rapid.Byte(), size, size).Draw(rt, "seed")
		net := rapid.SampledFrom(chainreg.Networks()).Draw(rt, "net")
		account := rapid.Uint32Range(
			0, chainreg.HardenedKeyStart-1,
		).Draw(rt, "account")

		seedCopy := append([]byte(nil), seed...)

		a, err := DeriveAccount(seed, net, account)
		require.NoError(rt, err)
		b, err := DeriveAccount(
			seed, net, account, WithParallelism(1),
		)
		require.NoError(rt, err)

		require.Equal(rt, a, b)
		require.Equal(rt, seedCopy, seed)
		require.Equal(rt, []uint32{
			ufvk.TypeP2PKH, ufvk.TypeSapling, ufvk.TypeOrchard,
		}, a.Typecodes())
	})
}

// TestDeriveAccountSeparation makes sure accounts, networks and pools never
// share key material.
func TestDeriveAccountSeparation(t *testing.T) {
	t.Parallel()

	seed := bytes.Repeat([]byte{0x17}, walletseed.MinSeedBytes)

	base, err := DeriveAccount(seed, chainreg.Mainnet, 0)
	require.NoError(t, err)
	otherAccount, err := DeriveAccount(seed, chainreg.Mainnet, 1)
	require.NoError(t, err)
	otherNet, err := DeriveAccount(seed, chainreg.Testnet, 0)
	require.NoError(t, err)

	for i := range base.Items {
		require.NotEqual(t, base.Items[i].Data, otherAccount.Items[i].Data)
		require.NotEqual(t, base.Items[i].Data, otherNet.Items[i].Data)
	}

	// Sapling and orchard walk the same path in independent trees.
	sapling := base.Item(ufvk.TypeSapling).UnsafeFromSome().Data
	orchard := base.Item(ufvk.TypeOrchard).UnsafeFromSome().Data
	require.NotEqual(t, sapling[:32], orchard[:32])
}

// TestViewingKeyPayloads checks the size and structure of each pool item.
func TestViewingKeyPayloads(t *testing.T) {
	t.Parallel()

	seed := bytes.Repeat([]byte{0xc3}, walletseed.RecommendedSeedBytes)
	coinType := chainreg.MainNetParams.CoinType

	transparent, err := Transparent.DeriveViewingKey(seed, coinType, 3)
	require.NoError(t, err)
	require.Len(t, transparent, 65)
	_, err = btcec.ParsePubKey(transparent[32:])
	require.NoError(t, err)

	sapling, err := Sapling.DeriveViewingKey(seed, coinType, 3)
	require.NoError(t, err)
	require.Len(t, sapling, 128)
	require.NotEqual(t, sapling[64:96], sapling[96:])

	orchard, err := Orchard.DeriveViewingKey(seed, coinType, 3)
	require.NoError(t, err)
	require.Len(t, orchard, 96)

	// ak is a Pallas point with an even y.
	var akEnc [32]byte
	copy(akEnc[:], orchard[:32])
	require.Zero(t, akEnc[31]&0x80)

	var ak pallas.Point
	_, err = ak.SetBytes(akEnc)
	require.NoError(t, err)
	require.True(t, ak.IsOnCurve())
	require.False(t, ak.IsIdentity())
}

// TestDeriveAccountInvalid covers the argument checks.
func TestDeriveAccountInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seed    []byte
		net     chainreg.Network
		account uint32
		opts    []DeriveOption
		wantErr error
	}{
		{
			name:    "short seed",
			seed:    make([]byte, 16),
			wantErr: walletseed.ErrSeedInvalid,
		},
		{
			name:    "odd seed",
			seed:    make([]byte, 48),
			wantErr: walletseed.ErrSeedInvalid,
		},
		{
			name:    "unknown network",
			seed:    zeroSeed,
			net:     chainreg.Network(42),
			wantErr: chainreg.ErrNetworkInvalid,
		},
		{
			name:    "hardened account",
			seed:    zeroSeed,
			account: chainreg.HardenedKeyStart,
			wantErr: ErrAccountInvalid,
		},
		{
			name:    "no pools",
			seed:    zeroSeed,
			opts:    []DeriveOption{WithPools()},
			wantErr: ErrNoPools,
		},
		{
			name: "same pool twice",
			seed: zeroSeed,
			opts: []DeriveOption{
				WithPools(Orchard, Orchard),
			},
			wantErr: ufvk.ErrDuplicateTypecode,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := DeriveAccount(
				test.seed, test.net, test.account, test.opts...,
			)
			require.ErrorIs(t, err, test.wantErr)
		})
	}
}

type failingPool struct {
	typecode uint32
	err      error
}

func (f failingPool) Typecode() uint32 { return f.typecode }
func (f failingPool) Name() string     { return "failing" }
func (f failingPool) Purpose() uint32  { return 0 }

func (f failingPool) DeriveViewingKey([]byte, uint32, uint32) ([]byte,
	error) {

	return nil, f.err
}

// TestDeriveAccountErrorOrder makes sure the reported error follows the pool
// order no matter which goroutine finishes first.
func TestDeriveAccountErrorOrder(t *testing.T) {
	t.Parallel()

	errA := errors.New("a")
	errB := errors.New("b")

	for i := 0; i < 20; i++ {
		_, err := DeriveAccount(zeroSeed, chainreg.Regtest, 0, WithPools(
			Transparent,
			failingPool{typecode: 10, err: errA},
			failingPool{typecode: 11, err: errB},
		))
		require.ErrorIs(t, err, errA)
		require.NotErrorIs(t, err, errB)
	}
}

// TestDeriveHardened exercises the bounded retry walk.
func TestDeriveHardened(t *testing.T) {
	t.Parallel()

	failFirst := func(n int) func(uint32) (uint32, error) {
		calls := 0
		return func(i uint32) (uint32, error) {
			calls++
			if calls <= n {
				return 0, errInvalidKey
			}

			return i, nil
		}
	}

	for n := 0; n < MaxDerivationAttempts; n++ {
		key, used, err := deriveHardened(7, failFirst(n))
		require.NoError(t, err)
		require.Equal(t, uint32(7+n), used)
		require.Equal(t, chainreg.HardenedKeyStart+7+uint32(n), key)

		// Running again lands on the same index.
		_, again, err := deriveHardened(7, failFirst(n))
		require.NoError(t, err)
		require.Equal(t, used, again)
	}

	_, _, err := deriveHardened(7, failFirst(MaxDerivationAttempts))
	require.ErrorIs(t, err, ErrDerivationExhausted)

	// Retrying past the last hardened index is an exhaustion, not a wrap.
	_, _, err = deriveHardened(chainreg.HardenedKeyStart-1, failFirst(1))
	require.ErrorIs(t, err, ErrDerivationExhausted)

	// Other errors are not retried.
	boom := errors.New("boom")
	calls := 0
	_, _, err = deriveHardened(0, func(uint32) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

// TestShieldedChildHardenedOnly makes sure shielded trees refuse public
// derivation and that nodes can be wiped.
func TestShieldedChildHardenedOnly(t *testing.T) {
	t.Parallel()

	orchard, err := newOrchardMaster(zeroSeed)
	require.NoError(t, err)
	defer orchard.Zero()

	_, err = orchard.child(5)
	require.Error(t, err)

	orchardChild, err := orchard.child(chainreg.HardenedKeyStart + 5)
	require.NoError(t, err)
	require.NotEqual(t, orchard.sk, orchardChild.sk)

	orchardChild.Zero()
	require.Equal(t, [32]byte{}, orchardChild.sk)
	require.Equal(t, [32]byte{}, orchardChild.chainCode)

	sapling := newSaplingMaster(zeroSeed)
	defer sapling.Zero()

	_, err = sapling.child(5)
	require.Error(t, err)

	saplingChild, err := sapling.child(chainreg.HardenedKeyStart + 5)
	require.NoError(t, err)
	require.NotEqual(t, sapling.ask, saplingChild.ask)
	require.NotEqual(t, sapling.ovk, saplingChild.ovk)

	saplingChild.Zero()
	require.Zero(t, saplingChild.ask.Sign())
	require.Zero(t, saplingChild.nsk.Sign())
	require.Equal(t, [32]byte{}, saplingChild.dk)
	require.Equal(t, [32]byte{}, saplingChild.chainCode)
}

// TestSaplingGenerators checks the Jubjub generators against their
// published encodings and the subgroup order.
func TestSaplingGenerators(t *testing.T) {
	t.Parallel()

	enc := encodeJubjub(&saplingSpendAuthBase)
	require.Equal(t, "30b5f2aaad325630bcdddbce4d67656d05fd1cc2d037bb53"+
		"75b6e96d9e01a1d7", hex.EncodeToString(enc[:]))

	curve := twistededwards.GetEdwardsCurve()
	order := &curve.Order
	for _, g := range []twistededwards.PointAffine{
		saplingSpendAuthBase, saplingProofGenBase,
	} {
		var p twistededwards.PointAffine
		p.ScalarMultiplication(&g, order)
		require.True(t, p.IsZero())
	}
}

// TestKeyPath checks the path notation and pool lookup.
func TestKeyPath(t *testing.T) {
	t.Parallel()

	path := KeyPath{Purpose: 44, CoinType: 8133, Account: 2}
	require.Equal(t, "m/44'/8133'/2'", path.String())

	pools, err := ParsePools(" orchard,Transparent ")
	require.NoError(t, err)
	require.Equal(t, []Pool{Orchard, Transparent}, pools)

	pools, err = ParsePools("")
	require.NoError(t, err)
	require.Equal(t, AllPools(), pools)

	_, err = ParsePools("orchard,sprout")
	require.Error(t, err)

	_, err = ParsePools("sapling,sapling")
	require.Error(t, err)
}
