// Package descriptors defines the on-disk JSON form of a running bridge
// environment. A leader process publishes the descriptor after launch;
// follower processes read it to attach to the shared environment.
package descriptors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// Chain describes the reachable endpoints of one chain of the bridge.
type Chain struct {
	Name string   `json:"name"`
	RPC  []string `json:"rpc"`
}

// BridgeEnvironment exposes the relevant information to interact with a
// running bridge environment from another process.
type BridgeEnvironment struct {
	Name string `json:"name"`

	// ChainA is the substrate-side chain, ChainB the EVM side.
	ChainA *Chain `json:"chain_a"`
	ChainB *Chain `json:"chain_b"`

	Resources map[string]stack.Resource `json:"resources,omitempty"`
}

// FromStack converts a live environment into its descriptor form.
func FromStack(env *stack.Environment) *BridgeEnvironment {
	out := &BridgeEnvironment{
		Name:      env.ID.String(),
		ChainA:    &Chain{Name: env.ChainA.Name, RPC: env.ChainA.RPC},
		ChainB:    &Chain{Name: env.ChainB.Name, RPC: env.ChainB.RPC},
		Resources: make(map[string]stack.Resource),
	}
	for _, name := range env.ResourceNames() {
		if r, ok := env.Resource(name); ok {
			out.Resources[name] = r
		}
	}
	return out
}

// ToStack converts a descriptor back into an environment handle.
// The result carries no cleanup: an attached environment is not owned by
// the attaching process.
func (d *BridgeEnvironment) ToStack() *stack.Environment {
	env := stack.NewEnvironment(stack.EnvID(d.Name))
	if d.ChainA != nil {
		env.ChainA = stack.ChainEndpoints{Name: d.ChainA.Name, RPC: d.ChainA.RPC}
	}
	if d.ChainB != nil {
		env.ChainB = stack.ChainEndpoints{Name: d.ChainB.Name, RPC: d.ChainB.RPC}
	}
	for name, r := range d.Resources {
		env.AddResource(name, r)
	}
	return env
}

// PathFor returns the descriptor file path for the given environment.
func PathFor(dir string, id stack.EnvID) string {
	return filepath.Join(dir, id.String()+".json")
}

// Write atomically publishes the descriptor at path.
func Write(path string, env *BridgeEnvironment) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal environment descriptor: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write environment descriptor: %w", err)
	}
	return os.Rename(tmp, path)
}

// Read loads a descriptor from path.
func Read(path string) (*BridgeEnvironment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out BridgeEnvironment
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse environment descriptor %s: %w", path, err)
	}
	return &out, nil
}

// Remove deletes a published descriptor. Missing files are not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
