package keychain

import (
	"fmt"
	"strings"
)

// Pool is a value pool whose account level viewing key can be derived from a
// seed. Every pool owns a fixed typecode within the unified viewing key.
type Pool interface {
	// Typecode is the typecode of the pool's unified viewing key item.
	Typecode() uint32

	// Name is the lower case name of the pool.
	Name() string

	// Purpose is the first hardened element of the pool's derivation
	// path.
	Purpose() uint32

	// DeriveViewingKey derives the raw viewing key item for the account.
	// The seed is only read.
	DeriveViewingKey(seed []byte, coinType, account uint32) ([]byte,
		error)
}

var (
	// Transparent is the transparent P2PKH pool.
	Transparent Pool = transparentPool{}

	// Sapling is the sapling shielded pool.
	Sapling Pool = saplingPool{}

	// Orchard is the orchard shielded pool.
	Orchard Pool = orchardPool{}
)

// AllPools returns every supported pool in typecode order.
func AllPools() []Pool {
	return []Pool{Transparent, Sapling, Orchard}
}

// PoolByName looks up a pool by its name, ignoring case.
func PoolByName(name string) (Pool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range AllPools() {
		if p.Name() == name {
			return p, nil
		}
	}

	return nil, fmt.Errorf("unknown pool %q", name)
}

// ParsePools parses a comma separated list of pool names. An empty list
// selects every pool.
func ParsePools(list string) ([]Pool, error) {
	if strings.TrimSpace(list) == "" {
		return AllPools(), nil
	}

	var (
		pools []Pool
		seen  = make(map[string]struct{})
	)
	for _, name := range strings.Split(list, ",") {
		p, err := PoolByName(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p.Name()]; ok {
			return nil, fmt.Errorf("pool %q listed twice", p.Name())
		}
		seen[p.Name()] = struct{}{}
		pools = append(pools, p)
	}

	return pools, nil
}
