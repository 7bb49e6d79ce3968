package main

import (
	"fmt"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/juno-cash/juno-keys/errorcodes"
	"github.com/juno-cash/juno-keys/internal/bech32m"
	"github.com/juno-cash/juno-keys/keychain"
	"github.com/juno-cash/juno-keys/secretfile"
	"github.com/juno-cash/juno-keys/ufvk"
	"github.com/juno-cash/juno-keys/walletseed"
)

// itemResult describes one item of a viewing key.
type itemResult struct {
	Typecode uint32 `json:"typecode"`
	Pool     string `json:"pool"`
	Length   int    `json:"length"`
}

// ufvkResult is the JSON data of the ufvk commands.
type ufvkResult struct {
	UFVK     string       `json:"ufvk"`
	Network  string       `json:"network"`
	UAHRP    string       `json:"ua_hrp"`
	UFVKHRP  string       `json:"ufvk_hrp"`
	CoinType uint32       `json:"coin_type"`
	Account  *uint32      `json:"account,omitempty"`
	Items    []itemResult `json:"items"`
}

func newUFVKResult(encoded string, bundle *ufvk.Bundle) (*ufvkResult,
	error) {

	params, err := chainreg.ParamsFor(bundle.Network)
	if err != nil {
		return nil, err
	}

	result := &ufvkResult{
		UFVK:     encoded,
		Network:  params.Name,
		UAHRP:    params.AddressHRP,
		UFVKHRP:  params.UFVKHRP,
		CoinType: params.CoinType,
		Items:    make([]itemResult, 0, len(bundle.Items)),
	}
	for _, item := range bundle.Items {
		result.Items = append(result.Items, itemResult{
			Typecode: item.Typecode,
			Pool:     ufvk.TypecodeName(item.Typecode),
			Length:   len(item.Data),
		})
	}

	return result, nil
}

type ufvkCommand struct {
	FromSeed *ufvkFromSeedCommand
	Inspect  *ufvkInspectCommand
}

func newUFVKCommand(a *app) *ufvkCommand {
	return &ufvkCommand{
		FromSeed: &ufvkFromSeedCommand{app: a},
		Inspect:  &ufvkInspectCommand{app: a},
	}
}

func (x *ufvkCommand) Register(parser *flags.Parser) error {
	cmd, err := parser.AddCommand(
		"ufvk",
		"Derive or inspect unified full viewing keys",
		"Derive the unified full viewing key of an account from a "+
			"seed, or decode an existing one",
		&struct{}{},
	)
	if err != nil {
		return err
	}

	_, err = cmd.AddCommand(
		"from-seed",
		"Derive the viewing key of an account",
		"Derive the unified full viewing key of one account from a "+
			"seed given as a file or as base64 text; the seed is "+
			"read and zeroed, never written or printed",
		x.FromSeed,
	)
	if err != nil {
		return err
	}

	_, err = cmd.AddCommand(
		"inspect",
		"Decode and describe a viewing key",
		"Validate a unified full viewing key and list its items; with "+
			"--network the key must belong to that network",
		x.Inspect,
	)
	return err
}

type ufvkFromSeedCommand struct {
	app *app

	SeedFile   string `long:"seed-file" description:"File that holds the seed as base64 or bech32m text"`
	SeedBase64 string `long:"seed-base64" description:"The seed as base64 text"`
	Account    uint32 `long:"account" description:"Account index to derive" default:"0"`
	Pools      string `long:"pools" description:"Comma separated pools to include {transparent, sapling, orchard}; all if empty"`
	UAHRP      string `long:"ua-hrp" description:"Unified address prefix the viewing key is meant for; must match the network"`
}

func (x *ufvkFromSeedCommand) Execute(_ []string) error {
	if err := x.app.setup(); err != nil {
		return err
	}

	// Validate everything that does not need the seed first.
	if (x.SeedFile == "") == (x.SeedBase64 == "") {
		return fmt.Errorf("%w: exactly one of --seed-file and "+
			"--seed-base64 is required", errorcodes.ErrInvalidRequest)
	}
	net, err := x.app.cfg.RequireNetwork()
	if err != nil {
		return err
	}
	if err := x.checkAddressHRP(net); err != nil {
		return err
	}
	if err := keychain.ValidateAccount(x.Account); err != nil {
		return err
	}
	pools, err := keychain.ParsePools(x.Pools)
	if err != nil {
		return fmt.Errorf("%w: %v", errorcodes.ErrInvalidRequest, err)
	}

	seed, err := x.loadSeed(net)
	if err != nil {
		return err
	}
	defer seed.Zero()

	bundle, err := keychain.DeriveAccount(
		seed, net, x.Account, keychain.WithPools(pools...),
	)
	if err != nil {
		return err
	}

	encoded, err := ufvk.Encode(bundle)
	if err != nil {
		return err
	}

	result, err := newUFVKResult(encoded, bundle)
	if err != nil {
		return err
	}
	account := x.Account
	result.Account = &account

	jkeyLog.Infof("Derived %d item viewing key for account %d on %v",
		len(bundle.Items), x.Account, net)

	return x.app.emit(result, encoded)
}

// checkAddressHRP makes sure an explicitly given address prefix maps to the
// viewing key prefix of the network.
func (x *ufvkFromSeedCommand) checkAddressHRP(net chainreg.Network) error {
	if x.UAHRP == "" {
		return nil
	}

	ufvkHRP, err := chainreg.UFVKHRPFromAddressHRP(x.UAHRP)
	if err != nil {
		return err
	}

	hrpNet, err := chainreg.NetworkForUFVKHRP(ufvkHRP)
	if err != nil {
		return fmt.Errorf("%w: %q is no known address prefix",
			chainreg.ErrAddressHRPInvalid, x.UAHRP)
	}
	if hrpNet != net {
		return fmt.Errorf("%w: address prefix %q belongs to %v, not %v",
			chainreg.ErrNetworkInvalid, x.UAHRP, hrpNet, net)
	}

	return nil
}

// loadSeed reads the seed from the selected source. Seed files may hold the
// base64 or the network tagged bech32m form.
func (x *ufvkFromSeedCommand) loadSeed(
	net chainreg.Network) (walletseed.Seed, error) {

	if x.SeedBase64 != "" {
		return walletseed.DecodeBase64(x.SeedBase64)
	}

	text, err := secretfile.Read(x.SeedFile)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: seed file %s is empty",
			walletseed.ErrSeedInvalid, x.SeedFile)
	}

	if looksLikeBech32Seed(text) {
		return walletseed.DecodeBech32(text, net)
	}

	return walletseed.DecodeBase64(text)
}

// looksLikeBech32Seed reports whether text is bech32m under a seed prefix.
// Base64 text practically never passes the checksum.
func looksLikeBech32Seed(text string) bool {
	hrp, _, err := bech32m.Decode(strings.TrimSpace(text))
	if err != nil {
		return false
	}

	_, err = chainreg.NetworkForSeedHRP(hrp)
	return err == nil
}

type ufvkInspectCommand struct {
	app *app

	UFVK string `long:"ufvk" description:"The unified full viewing key" required:"true"`
}

func (x *ufvkInspectCommand) Execute(_ []string) error {
	if err := x.app.setup(); err != nil {
		return err
	}

	expected, err := x.app.cfg.OptionalNetwork()
	if err != nil {
		return err
	}

	encoded := strings.TrimSpace(x.UFVK)
	bundle, err := ufvk.Decode(encoded, expected)
	if err != nil {
		return err
	}

	result, err := newUFVKResult(strings.ToLower(encoded), bundle)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "network: %s\n", result.Network)
	for i, item := range result.Items {
		fmt.Fprintf(&b, "item %d: typecode=%d pool=%s length=%d", i,
			item.Typecode, item.Pool, item.Length)
		if i < len(result.Items)-1 {
			b.WriteByte('\n')
		}
	}

	return x.app.emit(result, b.String())
}
