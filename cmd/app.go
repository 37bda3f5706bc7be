package cmd

import (
	"github.com/insightx/upi-insight/internal/chat"
	"github.com/insightx/upi-insight/internal/config"
	"github.com/insightx/upi-insight/internal/dataset"
	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/examples"
	"github.com/insightx/upi-insight/internal/llm"
	"github.com/insightx/upi-insight/internal/pipeline"
	"github.com/insightx/upi-insight/internal/schema"
	"github.com/insightx/upi-insight/internal/sqlgen"
	"github.com/insightx/upi-insight/internal/synthesis"
)

// app bundles the wired components a command needs.
type app struct {
	pipeline *pipeline.Pipeline
	store    *chat.Store
	executor *dataset.Executor
}

func (a *app) Close() {
	if a.executor != nil {
		_ = a.executor.Close()
	}

	if a.store != nil {
		_ = a.store.Close()
	}
}

// buildApp wires the full pipeline from configuration.
func buildApp(cfg *config.Config) (*app, error) {
	executor, err := dataset.NewExecutor(cfg.Dataset)
	if err != nil {
		return nil, err
	}

	store, err := chat.NewStore(cfg.Chat.Path, cfg.Chat.TitleMaxLength)
	if err != nil {
		_ = executor.Close()
		return nil, err
	}

	client, err := llm.NewClient(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		_ = executor.Close()
		_ = store.Close()

		return nil, apperrors.Wrap(err, apperrors.ErrTypeConfig, "failed to configure LLM provider").
			WithSuggestion("Set UPI_INSIGHT_LLM_API_KEY or switch UPI_INSIGHT_LLM_PROVIDER to ollama")
	}

	managerConfig := llm.DefaultManagerConfig()
	managerConfig.Timeout = cfg.LLMTimeoutDuration()

	manager := llm.NewManager(client, managerConfig)
	descriptor := schema.Default()
	index := examples.NewIndex(examples.Library())

	generator := sqlgen.NewGenerator(manager, descriptor, index, cfg.LLM.ExamplePick)
	engine := synthesis.NewEngine(manager, descriptor, cfg.LLM.Followups)

	p := pipeline.New(manager, generator, executor, engine, store, descriptor, pipeline.Options{
		ContextWindow: cfg.Chat.ContextWindow,
		Followups:     cfg.LLM.Followups,
	})

	return &app{pipeline: p, store: store, executor: executor}, nil
}
