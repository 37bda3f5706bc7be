package llm

import (
	"context"
	"time"

	"github.com/insightx/upi-insight/internal/chat"
	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/logging"
)

// Manager wraps a primary provider with retries, per-call timeouts, and a
// rule-based fallback.
type Manager struct {
	primary  Service
	fallback Service
	config   ManagerConfig
}

// ManagerConfig configures manager behavior
type ManagerConfig struct {
	RetryAttempts  int           `json:"retry_attempts"`
	RetryDelay     time.Duration `json:"retry_delay"`
	Timeout        time.Duration `json:"timeout"`
	EnableFallback bool          `json:"enable_fallback"`
}

// DefaultManagerConfig returns a sensible default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		RetryAttempts:  1,
		RetryDelay:     time.Second,
		Timeout:        45 * time.Second,
		EnableFallback: true,
	}
}

// NewManager creates a manager around the given primary service.
func NewManager(primary Service, config ManagerConfig) *Manager {
	return &Manager{
		primary:  primary,
		fallback: NewFallbackService(),
		config:   config,
	}
}

// Configure configures the primary provider.
func (m *Manager) Configure(config Config) error {
	return m.primary.Configure(config)
}

// Classify is a single cheap call with no retries. On failure it fails
// open: the question is treated as a data question and the error is
// returned alongside so callers can log a degraded-mode warning.
func (m *Manager) Classify(ctx context.Context, question string, history []chat.Turn) (bool, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	needsData, err := m.primary.Classify(ctx, question, history)
	if err == nil {
		return needsData, nil
	}

	logging.GetLogger().WithError(err).Warn("Intent classification failed, treating as data question")

	return true, err
}

// GenerateSQL tries the primary provider with retries, then the fallback.
func (m *Manager) GenerateSQL(ctx context.Context, req GenerateRequest) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= m.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(m.config.RetryDelay):
			}
		}

		sql, err := m.primary.GenerateSQL(ctx, req)
		if err == nil {
			return sql, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	logging.GetLogger().WithError(lastErr).Warn("SQL generation provider failed")

	if m.config.EnableFallback {
		return m.fallback.GenerateSQL(ctx, req)
	}

	return "", apperrors.Wrap(lastErr, apperrors.ErrTypeServiceUnavailable, "SQL generation failed")
}

// Synthesize tries the primary provider with retries, then the fallback.
func (m *Manager) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesisResponse, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= m.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.config.RetryDelay):
			}
		}

		response, err := m.primary.Synthesize(ctx, req)
		if err == nil {
			return response, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	logging.GetLogger().WithError(lastErr).Warn("Synthesis provider failed")

	if m.config.EnableFallback {
		return m.fallback.Synthesize(ctx, req)
	}

	return nil, apperrors.Wrap(lastErr, apperrors.ErrTypeServiceUnavailable, "synthesis failed")
}

// Chat tries the primary provider, then the fallback.
func (m *Manager) Chat(ctx context.Context, question string, history []chat.Turn) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	reply, err := m.primary.Chat(ctx, question, history)
	if err == nil {
		return reply, nil
	}

	logging.GetLogger().WithError(err).Warn("Chat provider failed")

	if m.config.EnableFallback {
		return m.fallback.Chat(ctx, question, history)
	}

	return "", apperrors.Wrap(err, apperrors.ErrTypeServiceUnavailable, "chat failed")
}

// Interpret tries the primary provider, then the fallback.
func (m *Manager) Interpret(ctx context.Context, ocrText string, note string) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	question, err := m.primary.Interpret(ctx, ocrText, note)
	if err == nil {
		return question, nil
	}

	logging.GetLogger().WithError(err).Warn("Document interpretation provider failed")

	if m.config.EnableFallback {
		return m.fallback.Interpret(ctx, ocrText, note)
	}

	return "", apperrors.Wrap(err, apperrors.ErrTypeServiceUnavailable, "document interpretation failed")
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.config.Timeout > 0 {
		return context.WithTimeout(ctx, m.config.Timeout)
	}

	return ctx, func() {}
}
