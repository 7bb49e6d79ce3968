// Package jcfg holds the global configuration of the juno-keys command. The
// options are read from an optional INI file and the command line, the
// latter taking precedence.
package jcfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/juno-cash/juno-keys/build"
	"github.com/juno-cash/juno-keys/chainreg"
	"github.com/juno-cash/juno-keys/errorcodes"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultConfigFilename is the default configuration file name.
	DefaultConfigFilename = "juno-keys.conf"

	// DefaultLogFilename is the name of the log file inside the log
	// directory.
	DefaultLogFilename = "juno-keys.log"

	defaultDebugLevel = "info"
)

var (
	// DefaultAppDir is the default directory that holds the configuration
	// file.
	DefaultAppDir = filepath.Join(homeDir(), ".juno-keys")

	// DefaultConfigFile is the default path of the configuration file.
	DefaultConfigFile = filepath.Join(DefaultAppDir, DefaultConfigFilename)
)

// Config is the set of options shared by all commands.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to an optional configuration file"`

	JSON bool `long:"json" description:"Print the result as a versioned JSON envelope"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	LogDir         string `long:"logdir" description:"Directory to additionally write a rotating log file to; file logging is off if empty"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`

	Network string `short:"n" long:"network" description:"The network keys are encoded for {mainnet, testnet, regtest}"`
}

// DefaultConfig returns the configuration with all defaults applied.
func DefaultConfig() Config {
	return Config{
		ConfigFile:     DefaultConfigFile,
		DebugLevel:     defaultDebugLevel,
		MaxLogFiles:    build.DefaultMaxLogFiles,
		MaxLogFileSize: build.DefaultMaxLogFileSize,
	}
}

// LoadConfig returns the defaults overlaid with the configuration file. The
// command line is only pre-parsed here to locate the file; the caller parses
// it again on top of the result so it takes precedence.
//
// A missing configuration file is only an error if it was asked for
// explicitly.
func LoadConfig(args []string) (*Config, error) {
	preCfg := DefaultConfig()
	preParser := flags.NewParser(&preCfg, flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	configFile := CleanAndExpandPath(preCfg.ConfigFile)
	err := flags.IniParse(configFile, &cfg)
	switch {
	case err == nil:

	case errors.Is(err, fs.ErrNotExist) &&
		configFile == CleanAndExpandPath(DefaultConfigFile):

	default:
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			return nil, err
		}

		return nil, fmt.Errorf("unable to load config file %s: %w",
			configFile, err)
	}
	cfg.ConfigFile = preCfg.ConfigFile

	return &cfg, nil
}

// Validate checks the merged configuration and normalizes all paths.
func (c *Config) Validate() error {
	c.ConfigFile = CleanAndExpandPath(c.ConfigFile)
	c.LogDir = CleanAndExpandPath(c.LogDir)

	if c.MaxLogFiles < 0 {
		return fmt.Errorf("%w: maxlogfiles must not be negative",
			errorcodes.ErrInvalidRequest)
	}
	if c.LogDir != "" && c.MaxLogFileSize <= 0 {
		return fmt.Errorf("%w: maxlogfilesize must be positive",
			errorcodes.ErrInvalidRequest)
	}

	if c.Network != "" {
		if _, err := chainreg.ParseNetwork(c.Network); err != nil {
			return err
		}
	}

	return nil
}

// LogFile returns the path of the log file, or the empty string if file
// logging is off.
func (c *Config) LogFile() string {
	if c.LogDir == "" {
		return ""
	}

	return filepath.Join(c.LogDir, DefaultLogFilename)
}

// RequireNetwork returns the configured network, failing if none was set.
func (c *Config) RequireNetwork() (chainreg.Network, error) {
	if c.Network == "" {
		return 0, fmt.Errorf("%w: no network given, use --network",
			chainreg.ErrNetworkInvalid)
	}

	return chainreg.ParseNetwork(c.Network)
}

// OptionalNetwork returns the configured network if one was set.
func (c *Config) OptionalNetwork() (fn.Option[chainreg.Network], error) {
	if c.Network == "" {
		return fn.None[chainreg.Network](), nil
	}

	net, err := chainreg.ParseNetwork(c.Network)
	if err != nil {
		return fn.None[chainreg.Network](), err
	}

	return fn.Some(net), nil
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", homeDir(), 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func homeDir() string {
	u, err := user.Current()
	if err == nil {
		return u.HomeDir
	}

	return os.Getenv("HOME")
}
