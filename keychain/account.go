package keychain

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/juno-cash/juno-keys/ufvk"
	"github.com/juno-cash/juno-keys/walletseed"
	"golang.org/x/sync/errgroup"
)

// deriveOptions holds the optional settings of DeriveAccount.
type deriveOptions struct {
	pools       []Pool
	parallelism int
}

func defaultDeriveOptions() *deriveOptions {
	return &deriveOptions{
		pools:       AllPools(),
		parallelism: runtime.NumCPU(),
	}
}

// DeriveOption is a functional option that alters DeriveAccount.
type DeriveOption func(*deriveOptions)

// WithPools restricts the derivation to the given pools, producing a partial
// bundle.
func WithPools(pools ...Pool) DeriveOption {
	return func(o *deriveOptions) {
		o.pools = pools
	}
}

// WithParallelism bounds the number of pools derived at once. Values below
// one derive the pools one after another.
func WithParallelism(n int) DeriveOption {
	return func(o *deriveOptions) {
		if n < 1 {
			n = 1
		}
		o.parallelism = n
	}
}

// DeriveAccount derives the unified full viewing key bundle of an account.
// Identical inputs always produce identical bundles. The seed is not
// modified and the caller stays responsible for zeroing it.
func DeriveAccount(seed []byte, net chainreg.Network, account uint32,
	opts ...DeriveOption) (*ufvk.Bundle, error) {

	options := defaultDeriveOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := walletseed.ValidateSize(len(seed)); err != nil {
		return nil, err
	}
	params, err := chainreg.ParamsFor(net)
	if err != nil {
		return nil, err
	}
	if err := chainreg.ValidateCoinType(params.CoinType); err != nil {
		return nil, err
	}
	if err := ValidateAccount(account); err != nil {
		return nil, err
	}
	if len(options.pools) == 0 {
		return nil, ErrNoPools
	}

	seen := make(map[uint32]string, len(options.pools))
	for _, p := range options.pools {
		if other, ok := seen[p.Typecode()]; ok {
			return nil, fmt.Errorf("%w: pools %s and %s",
				ufvk.ErrDuplicateTypecode, other, p.Name())
		}
		seen[p.Typecode()] = p.Name()
	}

	// Each pool writes only its own slot, so no locking is needed.
	var (
		items = make([]ufvk.Item, len(options.pools))
		errs  = make([]error, len(options.pools))
		g     errgroup.Group
	)
	g.SetLimit(options.parallelism)

	for i, p := range options.pools {
		g.Go(func() error {
			data, err := p.DeriveViewingKey(
				seed, params.CoinType, account,
			)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.Name(), err)
				return nil
			}

			items[i] = ufvk.Item{
				Typecode: p.Typecode(),
				Data:     data,
			}

			return nil
		})
	}
	_ = g.Wait()

	// Report the failure of the first pool in selection order so the error
	// does not depend on scheduling.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Typecode < items[j].Typecode
	})

	log.Debugf("Derived viewing key with %d pool items for account "+
		"%d on %v",
		len(items), account, net)

	return &ufvk.Bundle{
		Network: net,
		Items:   items,
	}, nil
}
