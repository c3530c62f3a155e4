package stack

import (
	"github.com/ethereum/go-ethereum/log"
)

// Config carries everything the launch stages need. It is assembled before
// launch and must not change once a launch has started.
type Config struct {
	EnvID EnvID

	// TmpDir is the harness working directory: lock files, environment
	// descriptors and per-process logs live underneath it.
	TmpDir string

	Log log.Logger

	// ChainA: substrate-side validator set.
	ChainABinary     string
	ChainAValidators []string
	ChainABasePort   int

	// ChainB: EVM-side dev chain.
	ChainBBinary string
	ChainBPort   int

	// Bridge/reward contract deployment, as an external pass-through command.
	DeployCommand []string

	// Validator registration, as an external pass-through command. Optional.
	RegisterCommand []string

	RelayerBinary string
}

// DefaultConfig returns a config for a fresh one-shot environment.
func DefaultConfig(logger log.Logger, tmpDir string) *Config {
	return &Config{
		EnvID:            TimeDerivedEnvID(),
		TmpDir:           tmpDir,
		Log:              logger,
		ChainABinary:     "bridgechain-node",
		ChainAValidators: []string{"alice", "bob"},
		ChainABasePort:   9944,
		ChainBBinary:     "anvil",
		ChainBPort:       8545,
		RelayerBinary:    "bridge-relayer",
	}
}

// Option mutates the config before launch, in the functional-options style.
type Option func(cfg *Config)

func WithEnvID(id EnvID) Option {
	return func(cfg *Config) { cfg.EnvID = id }
}

func WithChainABinary(bin string) Option {
	return func(cfg *Config) { cfg.ChainABinary = bin }
}

func WithChainAValidators(names ...string) Option {
	return func(cfg *Config) { cfg.ChainAValidators = names }
}

func WithChainBBinary(bin string) Option {
	return func(cfg *Config) { cfg.ChainBBinary = bin }
}

func WithRelayerBinary(bin string) Option {
	return func(cfg *Config) { cfg.RelayerBinary = bin }
}

func WithDeployCommand(cmd ...string) Option {
	return func(cfg *Config) { cfg.DeployCommand = cmd }
}

func WithRegisterCommand(cmd ...string) Option {
	return func(cfg *Config) { cfg.RegisterCommand = cmd }
}
