// Package structuring turns extracted resume text into a ResumeRecord by
// prompting a language model and validating its JSON answer.
package structuring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/domain"
)

// Config holds engine configuration
type Config struct {
	Backend Backend
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Engine structures resume text with a single model call per request
type Engine struct {
	backend   Backend
	model     string
	timeout   time.Duration
	prompt    *Prompt
	validator *Validator
	logger    *slog.Logger
}

// NewEngine creates a structuring engine
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("structuring backend is required")
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to build resume validator: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		backend:   cfg.Backend,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		prompt:    NewPrompt(),
		validator: validator,
		logger:    logger,
	}, nil
}

// Structure converts text into a validated resume record.
// Every failure wraps domain.ErrStructuringFailed and carries a short reason;
// backend and validation details are only logged.
func (e *Engine) Structure(ctx context.Context, text string) (*domain.ResumeRecord, error) {
	prompt, err := e.prompt.Render(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStructuringFailed, err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := e.backend.Generate(ctx, prompt, e.model)
	if err != nil {
		e.logger.Error("Model call failed",
			slog.String("provider", e.backend.Name()),
			slog.String("model", e.model),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		if ctx.Err() != nil {
			return nil, structuringError(errModelTimeout)
		}
		return nil, structuringError(errModelCallFailed)
	}

	e.logger.Info("Model response received",
		slog.String("provider", e.backend.Name()),
		slog.String("model", e.model),
		slog.Int("bytes", len(raw)),
		slog.Duration("elapsed", time.Since(start)),
	)

	payload := []byte(stripCodeFence(raw))
	if err := e.validator.Validate(payload); err != nil {
		e.logger.Warn("Model output rejected",
			slog.String("provider", e.backend.Name()),
			slog.Any("error", err),
		)
		switch {
		case errors.Is(err, errInvalidJSON):
			return nil, structuringError(errInvalidJSON)
		default:
			return nil, structuringError(errSchemaMismatch)
		}
	}

	var record domain.ResumeRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		e.logger.Warn("Model output could not be decoded", slog.Any("error", err))
		return nil, structuringError(errDecodeFailed)
	}
	record.Normalize()

	return &record, nil
}

func structuringError(reason error) error {
	return fmt.Errorf("%w: %w", domain.ErrStructuringFailed, reason)
}

// stripCodeFence removes a surrounding Markdown code block if the model added one
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
