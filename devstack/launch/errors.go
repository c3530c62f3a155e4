package launch

import (
	"fmt"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// ConflictError reports that a resource belonging to a same-named environment
// already exists. Launch must not proceed over it.
type ConflictError struct {
	EnvID     stack.EnvID
	Namespace string
	Resource  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"environment %q already has a live resource in the %s namespace: %s; "+
			"tear down the old environment or pick a different environment id",
		e.EnvID, e.Namespace, e.Resource)
}

// StageError reports that a bring-up stage failed. RolledBack tells whether
// the cleanup of all previously completed stages ran to completion.
type StageError struct {
	EnvID      stack.EnvID
	Stage      string
	RolledBack bool
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("environment %q: stage %q failed (rollback complete: %v): %v",
		e.EnvID, e.Stage, e.RolledBack, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
