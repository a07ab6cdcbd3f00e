// Package extraction turns PDF bytes into plain text through an ordered
// list of strategies, falling back to the next one when a strategy yields
// no usable text.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Strategy extracts plain text from raw document bytes
type Strategy interface {
	Name() string
	Extract(ctx context.Context, data []byte) (string, error)
}

// Chain tries its strategies in order and returns the first non-blank text
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewChain creates a chain that runs strategies in the given order
func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		strategies: strategies,
		logger:     logger,
	}
}

// Extract returns the trimmed text of the first strategy that produced any,
// or an empty string when every strategy came back blank or failed.
func (c *Chain) Extract(ctx context.Context, data []byte) string {
	for _, strategy := range c.strategies {
		if ctx.Err() != nil {
			c.logger.Warn("Extraction stopped",
				slog.String("strategy", strategy.Name()),
				slog.Any("error", ctx.Err()),
			)
			return ""
		}

		start := time.Now()
		text := c.attempt(ctx, strategy, data)
		if text == "" {
			c.logger.Info("Extraction strategy produced no text",
				slog.String("strategy", strategy.Name()),
				slog.Duration("elapsed", time.Since(start)),
			)
			continue
		}

		c.logger.Info("Text extracted",
			slog.String("strategy", strategy.Name()),
			slog.Int("chars", len(text)),
			slog.Duration("elapsed", time.Since(start)),
		)
		return text
	}

	return ""
}

// attempt runs one strategy and folds every failure into an empty result
func (c *Chain) attempt(ctx context.Context, strategy Strategy, data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Extraction strategy panicked",
				slog.String("strategy", strategy.Name()),
				slog.String("panic", fmt.Sprint(r)),
			)
			text = ""
		}
	}()

	out, err := strategy.Extract(ctx, data)
	if err != nil {
		c.logger.Warn("Extraction strategy failed",
			slog.String("strategy", strategy.Name()),
			slog.Any("error", err),
		)
		return ""
	}

	return strings.TrimSpace(out)
}

// joinPages concatenates page texts with newline separation, skipping blank pages
func joinPages(pages []string) string {
	var b strings.Builder
	for _, page := range pages {
		page = strings.TrimRight(page, " \t\r\n")
		if strings.TrimSpace(page) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(page)
	}
	return b.String()
}

// Config holds the settings for the standard three tier chain
type Config struct {
	Pdftotext      string
	Pdftoppm       string
	Tesseract      string
	DPI            int
	Language       string
	OCRConcurrency int
	MaxPages       int
}

// NewDefaultChain builds the layout, generic and OCR strategies in that order
func NewDefaultChain(cfg Config, runner Runner, logger *slog.Logger) *Chain {
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}

	return NewChain(logger,
		NewLayoutStrategy(cfg.Pdftotext, runner),
		NewGenericStrategy(),
		NewOCRStrategy(OCRConfig{
			Pdftoppm:    cfg.Pdftoppm,
			Tesseract:   cfg.Tesseract,
			DPI:         cfg.DPI,
			Language:    cfg.Language,
			Concurrency: cfg.OCRConcurrency,
			MaxPages:    cfg.MaxPages,
		}, runner, logger),
	)
}
