package shared

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

const (
	// EnvVarReuse selects cross-process reuse mode: one leader process
	// launches the shared environment, all others attach to it.
	EnvVarReuse = "BRIDGE_DEVNET_REUSE"

	// EnvVarEnvID overrides the shared environment id. The value is
	// sanitized before use as a resource name.
	EnvVarEnvID = stack.EnvMarkerVar
)

// DefaultReusableEnvID is the environment id used in reuse mode when no
// override is set, so that independent test-runner processes agree on a name.
const DefaultReusableEnvID stack.EnvID = "bridge-shared"

// ReuseDir is the directory shared by all reuse-mode harness processes:
// lock files and environment descriptors live here, so every process must
// derive the same path.
func ReuseDir() string {
	return filepath.Join(os.TempDir(), "bridge-devnet")
}

// EnvConfig is the environment-variable driven part of the harness setup.
type EnvConfig struct {
	// Reuse enables the cross-process reuse protocol.
	Reuse bool
	// EnvID is the shared environment id, already sanitized.
	EnvID stack.EnvID
}

// FromOSEnv reads the harness configuration from the process environment.
func FromOSEnv() EnvConfig {
	cfg := EnvConfig{}
	switch strings.ToLower(os.Getenv(EnvVarReuse)) {
	case "1", "true", "yes", "on":
		cfg.Reuse = true
	}
	if raw := os.Getenv(EnvVarEnvID); raw != "" {
		cfg.EnvID = stack.SanitizeEnvID(raw)
	} else if cfg.Reuse {
		cfg.EnvID = DefaultReusableEnvID
	} else {
		cfg.EnvID = stack.TimeDerivedEnvID()
	}
	return cfg
}
