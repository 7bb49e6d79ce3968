package main

import (
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/juno-cash/juno-keys/errorcodes"
	"github.com/juno-cash/juno-keys/secretfile"
	"github.com/juno-cash/juno-keys/walletseed"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/term"
)

const (
	formatBase64  = "base64"
	formatBech32m = "bech32m"
)

// SeedOutput are the options that decide where a seed goes.
type SeedOutput struct {
	Out    string `long:"out" description:"Write the seed to this file (mode 0600)"`
	Force  bool   `long:"force" description:"Overwrite the file given with --out if it already exists"`
	Print  bool   `long:"print" description:"Print the seed itself; without this flag the seed is never shown"`
	Format string `long:"format" description:"Text encoding of the seed" choice:"base64" choice:"bech32m" default:"base64"`
}

// seedResult is the JSON data of the seed commands.
type seedResult struct {
	Bytes      int    `json:"bytes"`
	OutPath    string `json:"out_path,omitempty"`
	SeedBase64 string `json:"seed_base64,omitempty"`
	SeedBech32 string `json:"seed_bech32,omitempty"`
}

type seedCommand struct {
	New          *seedNewCommand
	FromMnemonic *seedFromMnemonicCommand
}

func newSeedCommand(a *app) *seedCommand {
	return &seedCommand{
		New: &seedNewCommand{
			app:   a,
			Bytes: walletseed.RecommendedSeedBytes,
		},
		FromMnemonic: &seedFromMnemonicCommand{app: a},
	}
}

func (x *seedCommand) Register(parser *flags.Parser) error {
	cmd, err := parser.AddCommand(
		"seed",
		"Create or import a wallet seed",
		"Create a new random wallet seed or import one from a BIP-39 "+
			"mnemonic",
		&struct{}{},
	)
	if err != nil {
		return err
	}

	_, err = cmd.AddCommand(
		"new",
		"Generate a new random seed",
		"Generate a new seed from the operating system's secure "+
			"random source; the seed is written to --out and only "+
			"shown if --print is set",
		x.New,
	)
	if err != nil {
		return err
	}

	_, err = cmd.AddCommand(
		"from-mnemonic",
		"Derive a seed from a BIP-39 mnemonic",
		"Read a BIP-39 mnemonic from a file, verify its checksum and "+
			"turn it into a 64 byte seed; an optional passphrase is "+
			"read from --passphrase-file or prompted for with "+
			"--ask-passphrase",
		x.FromMnemonic,
	)
	return err
}

type seedNewCommand struct {
	app *app

	Bytes int `long:"bytes" description:"Seed size in bytes (32 or 64)"`

	SeedOutput
}

func (x *seedNewCommand) Execute(_ []string) error {
	if err := x.app.setup(); err != nil {
		return err
	}

	if err := walletseed.ValidateSize(x.Bytes); err != nil {
		return err
	}
	if err := x.SeedOutput.check(x.app); err != nil {
		return err
	}

	seed, err := walletseed.Generate(x.Bytes)
	if err != nil {
		return err
	}
	defer seed.Zero()

	return x.SeedOutput.deliver(x.app, seed)
}

type seedFromMnemonicCommand struct {
	app *app

	MnemonicFile   string `long:"mnemonic-file" description:"File that holds the BIP-39 mnemonic" required:"true"`
	PassphraseFile string `long:"passphrase-file" description:"File that holds the optional BIP-39 passphrase"`
	AskPassphrase  bool   `long:"ask-passphrase" description:"Prompt for the BIP-39 passphrase on the terminal"`

	SeedOutput
}

func (x *seedFromMnemonicCommand) Execute(_ []string) error {
	if err := x.app.setup(); err != nil {
		return err
	}

	if x.PassphraseFile != "" && x.AskPassphrase {
		return fmt.Errorf("%w: --passphrase-file and --ask-passphrase "+
			"are mutually exclusive", errorcodes.ErrInvalidRequest)
	}
	if err := x.SeedOutput.check(x.app); err != nil {
		return err
	}

	mnemonic, err := secretfile.Read(x.MnemonicFile)
	if err != nil {
		return err
	}

	var passphrase string
	switch {
	case x.PassphraseFile != "":
		passphrase, err = secretfile.Read(x.PassphraseFile)
		if err != nil {
			return err
		}

	case x.AskPassphrase:
		passphrase, err = x.readPassphrase()
		if err != nil {
			return err
		}
	}

	seed, err := walletseed.FromMnemonic(mnemonic, passphrase)
	if err != nil {
		return err
	}
	defer seed.Zero()

	return x.SeedOutput.deliver(x.app, seed)
}

// readPassphrase prompts for the passphrase without echoing it.
func (x *seedFromMnemonicCommand) readPassphrase() (string, error) {
	if !isTerminal(x.app.stdin) {
		return "", fmt.Errorf("%w: --ask-passphrase needs a terminal",
			errorcodes.ErrInvalidRequest)
	}

	_, _ = fmt.Fprint(x.app.stderr, "BIP-39 passphrase: ")
	fd := int(x.app.stdin.(interface{ Fd() uintptr }).Fd())
	pass, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(x.app.stderr)
	if err != nil {
		return "", err
	}

	return string(pass), nil
}

// check validates the output options before any seed exists, so a bad flag
// never costs a generated seed.
func (o *SeedOutput) check(a *app) error {
	if o.Force && o.Out == "" {
		return fmt.Errorf("%w: --force needs --out",
			errorcodes.ErrInvalidRequest)
	}

	if o.Format == formatBech32m {
		if _, err := a.cfg.RequireNetwork(); err != nil {
			return err
		}
	}

	return nil
}

// encode renders the seed in the selected text format.
func (o *SeedOutput) encode(a *app, seed walletseed.Seed) (string, error) {
	if o.Format != formatBech32m {
		return walletseed.EncodeBase64(seed), nil
	}

	net, err := a.cfg.RequireNetwork()
	if err != nil {
		return "", err
	}

	return walletseed.EncodeBech32(seed, net)
}

// deliver writes and prints the seed as requested and emits the result.
func (o *SeedOutput) deliver(a *app, seed walletseed.Seed) error {
	text, err := o.encode(a, seed)
	if err != nil {
		return err
	}

	outPath := fn.None[string]()
	if o.Out != "" {
		err := secretfile.Write(o.Out, []byte(text+"\n"), o.Force)
		if err != nil {
			return err
		}
		outPath = fn.Some(o.Out)
	}

	result := &seedResult{
		Bytes:   seed.Len(),
		OutPath: outPath.UnwrapOr(""),
	}

	switch {
	case o.Print && o.Format == formatBech32m:
		result.SeedBech32 = text

	case o.Print:
		result.SeedBase64 = text

	case outPath.IsNone():
		jkeyLog.Warnf("Seed was neither written nor printed, it is " +
			"discarded; use --out or --print to keep it")
	}

	if o.Print && !a.cfg.JSON && isTerminal(a.stdout) {
		jkeyLog.Warnf("Printing seed to the terminal, make sure no " +
			"one is watching")
	}

	human := text
	if !o.Print {
		human = outPath.UnwrapOr("")
	}

	return a.emit(result, human)
}
