package stack

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"github.com/roothash-pay/bridge-devnet/bridge-service/locks"
)

// EnvID identifies one bridge environment. It is used as-is in resource names
// (process args, container labels, lock file names), so it is restricted to
// a conservative character set.
type EnvID string

func (id EnvID) String() string {
	return string(id)
}

const maxEnvIDLength = 64

// EnvMarkerVar is the environment variable stamped on every process spawned
// for an environment, so the process table can be scanned for leftovers.
// It doubles as the user-facing override for the shared environment id.
const EnvMarkerVar = "BRIDGE_DEVNET_ENV_ID"

// EnvMarkerFor returns the marker in KEY=value form for use in exec env lists.
func EnvMarkerFor(id EnvID) string {
	return EnvMarkerVar + "=" + id.String()
}

// SanitizeEnvID lowercases the raw name and strips everything outside [a-z0-9-].
// The result is truncated to a length safe for resource names.
func SanitizeEnvID(raw string) EnvID {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '_' || r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxEnvIDLength {
		out = out[:maxEnvIDLength]
	}
	return EnvID(out)
}

// TimeDerivedEnvID returns a fresh environment ID for one-shot environments.
func TimeDerivedEnvID() EnvID {
	return EnvID(fmt.Sprintf("bridge-%d", time.Now().UnixNano()))
}

// ResourceKind distinguishes how a sub-resource of the environment is addressed.
type ResourceKind string

const (
	ResourceProcess   ResourceKind = "process"
	ResourceContainer ResourceKind = "container"
)

// Resource is one named sub-resource of a running environment:
// a process (Ref is the pid) or a container (Ref is the container ID).
type Resource struct {
	Kind ResourceKind `json:"kind"`
	Ref  string       `json:"ref"`
}

// ChainEndpoints holds the RPC endpoints of one chain of the bridge.
type ChainEndpoints struct {
	Name string   `json:"name"`
	RPC  []string `json:"rpc"`
}

// First returns the primary RPC endpoint, or an empty string if there is none.
func (c ChainEndpoints) First() string {
	if len(c.RPC) == 0 {
		return ""
	}
	return c.RPC[0]
}

// Environment is the descriptor of one running bridge environment.
// It is owned by the launch pipeline invocation that created it:
// stages populate it during launch, afterwards it is read-only for callers.
type Environment struct {
	ID EnvID

	// ChainA is the substrate-side chain (validator set).
	ChainA ChainEndpoints
	// ChainB is the EVM-side chain.
	ChainB ChainEndpoints

	resources locks.RWMap[string, Resource]

	cleanup CleanupFunc
}

func NewEnvironment(id EnvID) *Environment {
	return &Environment{ID: id}
}

// AddResource records a named sub-resource. Called by stages during launch.
func (e *Environment) AddResource(name string, r Resource) {
	e.resources.Set(name, r)
}

func (e *Environment) RemoveResource(name string) {
	e.resources.Delete(name)
}

func (e *Environment) Resource(name string) (Resource, bool) {
	return e.resources.Get(name)
}

// ResourceNames returns the names of all recorded sub-resources, sorted.
func (e *Environment) ResourceNames() []string {
	out := make(map[string]struct{})
	e.resources.Range(func(name string, _ Resource) bool {
		out[name] = struct{}{}
		return true
	})
	names := maps.Keys(out)
	slices.Sort(names)
	return names
}

// SetCleanup attaches the composed cleanup. Owned by the launch pipeline.
func (e *Environment) SetCleanup(fn CleanupFunc) {
	e.cleanup = fn
}

// Cleanup destroys the environment by invoking the composed cleanup stack.
// Safe to call on an environment without cleanup (e.g. an attached one).
func (e *Environment) Cleanup(ctx context.Context) error {
	if e.cleanup == nil {
		return nil
	}
	fn := e.cleanup
	e.cleanup = nil
	return fn(ctx)
}
