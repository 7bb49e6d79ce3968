package chainreg

import (
	"errors"
	"fmt"
	"strings"
)

// Network identifies one of the chains that keys can be derived for. The
// network selects every human readable prefix as well as the coin type used
// within the derivation paths.
type Network uint8

const (
	// Mainnet is the production network.
	Mainnet Network = iota

	// Testnet is the public test network.
	Testnet

	// Regtest is a local regression test network.
	Regtest
)

const (
	// HardenedKeyStart is the index at which a hardened key starts. Coin
	// types and accounts must stay below it since they are always used as
	// hardened path elements.
	HardenedKeyStart uint32 = 0x80000000

	// maxHRPLen is the longest human readable prefix we allow. The UFVK
	// container embeds the prefix in a 16 byte padding block.
	maxHRPLen = 16
)

var (
	// ErrNetworkInvalid is returned when a network tag or prefix does not
	// belong to any known network, or belongs to a different network than
	// the one expected by the caller.
	ErrNetworkInvalid = errors.New("network_invalid")

	// ErrAddressHRPInvalid is returned when an address prefix cannot be
	// mapped to a viewing key prefix.
	ErrAddressHRPInvalid = errors.New("ua_hrp_invalid")

	// ErrCoinTypeInvalid is returned when a coin type does not fit into a
	// hardened path element.
	ErrCoinTypeInvalid = errors.New("coin_type_invalid")
)

// Params houses the static constants of a single network.
type Params struct {
	// Network is the network these parameters belong to.
	Network Network

	// Name is the lower case name of the network, as accepted on the
	// command line.
	Name string

	// CoinType is the coin type used as the second element of all
	// derivation paths.
	CoinType uint32

	// SeedHRP is the human readable prefix of network tagged seeds.
	SeedHRP string

	// UFVKHRP is the human readable prefix of unified viewing keys.
	UFVKHRP string

	// AddressHRP is the human readable prefix of unified addresses.
	AddressHRP string
}

// MainNetParams are the parameters of the production network.
var MainNetParams = Params{
	Network:    Mainnet,
	Name:       "mainnet",
	CoinType:   8133,
	SeedHRP:    "jseed",
	UFVKHRP:    "jview",
	AddressHRP: "j",
}

// TestNetParams are the parameters of the public test network.
var TestNetParams = Params{
	Network:    Testnet,
	Name:       "testnet",
	CoinType:   8134,
	SeedHRP:    "jseedtest",
	UFVKHRP:    "jviewtest",
	AddressHRP: "jtest",
}

// RegTestParams are the parameters of a local regression test network.
var RegTestParams = Params{
	Network:    Regtest,
	Name:       "regtest",
	CoinType:   8135,
	SeedHRP:    "jseedregtest",
	UFVKHRP:    "jviewregtest",
	AddressHRP: "jregtest",
}

// registeredNets is the list of all known networks, indexed by Network.
var registeredNets = []*Params{
	&MainNetParams,
	&TestNetParams,
	&RegTestParams,
}

func init() {
	if err := checkRegistry(registeredNets); err != nil {
		panic(fmt.Sprintf("chainreg: %v", err))
	}
}

// checkRegistry makes sure that no two networks share a prefix or coin type,
// so an encoded artifact always identifies exactly one network.
func checkRegistry(nets []*Params) error {
	seen := make(map[string]Network)
	coins := make(map[uint32]Network)
	for i, p := range nets {
		if p.Network != Network(i) {
			return fmt.Errorf("network %v registered at index %d",
				p.Network, i)
		}

		if err := ValidateCoinType(p.CoinType); err != nil {
			return err
		}
		if other, ok := coins[p.CoinType]; ok {
			return fmt.Errorf("coin type %d used by %v and %v",
				p.CoinType, other, p.Network)
		}
		coins[p.CoinType] = p.Network

		ufvkHRP, err := UFVKHRPFromAddressHRP(p.AddressHRP)
		if err != nil {
			return err
		}
		if ufvkHRP != p.UFVKHRP {
			return fmt.Errorf("%v: ufvk hrp %q does not match "+
				"address hrp %q", p.Network, p.UFVKHRP,
				p.AddressHRP)
		}

		for _, hrp := range []string{p.SeedHRP, p.UFVKHRP, p.AddressHRP} {
			if len(hrp) == 0 || len(hrp) > maxHRPLen {
				return fmt.Errorf("%v: invalid hrp length %q",
					p.Network, hrp)
			}
			if other, ok := seen[hrp]; ok {
				return fmt.Errorf("hrp %q used by %v and %v",
					hrp, other, p.Network)
			}
			seen[hrp] = p.Network
		}
	}

	return nil
}

// String returns the lower case name of the network.
func (n Network) String() string {
	if int(n) < len(registeredNets) {
		return registeredNets[n].Name
	}

	return fmt.Sprintf("unknown(%d)", uint8(n))
}

// ParamsFor returns the parameters of the given network.
func ParamsFor(n Network) (*Params, error) {
	if int(n) >= len(registeredNets) {
		return nil, fmt.Errorf("%w: unknown network tag %d",
			ErrNetworkInvalid, uint8(n))
	}

	return registeredNets[n], nil
}

// Networks returns all known networks in tag order.
func Networks() []Network {
	nets := make([]Network, 0, len(registeredNets))
	for _, p := range registeredNets {
		nets = append(nets, p.Network)
	}

	return nets
}

// ParseNetwork maps a network name to its tag. The comparison ignores case
// and surrounding white space.
func ParseNetwork(name string) (Network, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range registeredNets {
		if p.Name == name {
			return p.Network, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown network %q", ErrNetworkInvalid,
		name)
}

// NetworkForUFVKHRP returns the network that uses the given viewing key
// prefix.
func NetworkForUFVKHRP(hrp string) (Network, error) {
	return lookupHRP(hrp, func(p *Params) string { return p.UFVKHRP })
}

// NetworkForSeedHRP returns the network that uses the given seed prefix.
func NetworkForSeedHRP(hrp string) (Network, error) {
	return lookupHRP(hrp, func(p *Params) string { return p.SeedHRP })
}

func lookupHRP(hrp string, field func(*Params) string) (Network, error) {
	hrp = strings.ToLower(hrp)
	for _, p := range registeredNets {
		if field(p) == hrp {
			return p.Network, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown prefix %q", ErrNetworkInvalid, hrp)
}

// UFVKHRPFromAddressHRP maps a unified address prefix to the matching
// unified viewing key prefix: "j" becomes "jview" and "j<suffix>" becomes
// "jview<suffix>".
func UFVKHRPFromAddressHRP(addressHRP string) (string, error) {
	hrp := strings.TrimSpace(addressHRP)

	suffix, ok := strings.CutPrefix(hrp, "j")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrAddressHRPInvalid, hrp)
	}

	return "jview" + suffix, nil
}

// ValidateCoinType makes sure the coin type can be used as a hardened path
// element.
func ValidateCoinType(coinType uint32) error {
	if coinType >= HardenedKeyStart {
		return fmt.Errorf("%w: %d", ErrCoinTypeInvalid, coinType)
	}

	return nil
}
