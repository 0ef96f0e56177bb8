package main

import (
	"context"
	"fmt"

	"postcouncil/internal/assembler"
	"postcouncil/internal/campaign"
	"postcouncil/internal/config"
	"postcouncil/internal/council"
	"postcouncil/internal/execlog"
	"postcouncil/internal/logging"
	"postcouncil/internal/provider"
	"postcouncil/internal/store"
	"postcouncil/internal/types"
)

// newClients builds the backend clients. Tests replace it.
var newClients = func(c *config.Config) provider.ClientSource {
	return provider.NewClientSet(c)
}

// openStore opens the configured database, applying migrations.
func openStore(ctx context.Context) (*store.Store, error) {
	s, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	return s, nil
}

// buildOrchestrator wires every component of an activation over s. progress
// may be nil.
func buildOrchestrator(c *config.Config, s *store.Store, progress campaign.ProgressFunc) (*campaign.Orchestrator, error) {
	clients := newClients(c)
	recorder := execlog.New(s)

	gen := provider.NewModelProvider(clients, recorder, provider.Options{
		MaxOutputTokens: c.Providers.MaxOutputTokens,
		Temperature:     c.Providers.Temperature,
	})

	judge, err := buildJudge(c, clients)
	if err != nil {
		return nil, err
	}

	defaultBackend, err := types.ParseBackend(c.Orchestrator.DefaultBackend)
	if err != nil {
		return nil, err
	}
	selection, err := types.ParseSelectionMethod(c.Council.SelectionMethod)
	if err != nil {
		return nil, err
	}

	return campaign.NewOrchestrator(campaign.OrchestratorConfig{
		Store:     s,
		Posts:     s,
		Recorder:  recorder,
		Assembler: assembler.New(s, recorder, assembler.Brand{Name: c.Brand.Name, Mission: c.Brand.Mission, Platform: c.Brand.Platform}),
		Generator: gen,
		Round: council.NewRound(gen, council.RetryPolicy{
			MaxAttempts:      c.Council.Retry.MaxAttempts,
			RateLimitBackoff: c.GetRateLimitBackoff(),
			TimeoutBackoff:   c.GetTimeoutBackoff(),
		}),
		Aggregator: council.NewAggregator(judge, recorder),
		Defaults: campaign.Defaults{
			MaxParallelUnits: c.Orchestrator.MaxParallelUnits,
			PostsPerSubject:  c.Orchestrator.DefaultPostsPerSubject,
			Model:            c.Orchestrator.DefaultModel,
			Backend:          defaultBackend,
			Style:            c.Orchestrator.DefaultStyle,
			Branches:         c.Council.Branches,
			SelectionMethod:  selection,
		},
		Progress: progress,
	}), nil
}

func buildJudge(c *config.Config, clients provider.ClientSource) (council.Judge, error) {
	backend, err := types.ParseBackend(c.Judge.Provider)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	client, err := clients.Client(backend)
	if err != nil {
		logging.BootWarn("judge backend %s unavailable, llm_judge will fall back: %v", backend, err)
		return nil, nil
	}
	return council.NewClientJudge(client, c.Judge.Model, c.Judge.MaxTokens, c.Judge.Temperature), nil
}
