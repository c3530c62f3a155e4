package stack

import "context"

// CleanupFunc releases the resources a stage brought up.
// It is invoked at most once, and only after the owning stage succeeded.
type CleanupFunc func(ctx context.Context) error

// StageResult is the outcome of one launch stage.
// A nil Err means success. Cleanup, if present, is retained by the pipeline
// regardless of later stage outcomes.
type StageResult struct {
	Err     error
	Cleanup CleanupFunc
}

func (r StageResult) Success() bool {
	return r.Err == nil
}

// Stage is one bring-up step of the launch pipeline, implemented by an
// external collaborator (chain-A bring-up, chain-B bring-up, contract
// deployment, validator registration, relayer bring-up).
//
// Stages are run strictly in declared order: a stage may depend on endpoints
// and resources that earlier stages recorded on the environment.
type Stage interface {
	Name() string
	Run(ctx context.Context, cfg *Config, env *Environment) StageResult
}

// StageFunc adapts a plain function into a Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, cfg *Config, env *Environment) StageResult
}

func (s StageFunc) Name() string {
	return s.StageName
}

func (s StageFunc) Run(ctx context.Context, cfg *Config, env *Environment) StageResult {
	return s.Fn(ctx, cfg, env)
}

var _ Stage = StageFunc{}
