package preflight

import (
	"context"

	"reel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, depResult(status))
	}

	if cfg.Agent.Enabled {
		results = append(results, CheckLLM(ctx, "Decision model", cfg.DecisionLLM()))
		if resolverUsesDistinctLLM(cfg) {
			results = append(results, CheckLLM(ctx, "Resolver model", cfg.ResolverLLM()))
		}
	}

	return results
}

// resolverUsesDistinctLLM returns true when the resolver model config
// resolves to a different endpoint or model than the decision model.
// When they're identical, the decision model check already covers it.
func resolverUsesDistinctLLM(cfg *config.Config) bool {
	decision := cfg.DecisionLLM()
	resolver := cfg.ResolverLLM()
	return decision.BaseURL != resolver.BaseURL ||
		decision.Model != resolver.Model ||
		decision.APIKey != resolver.APIKey
}
