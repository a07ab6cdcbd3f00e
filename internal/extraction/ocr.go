package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// OCRConfig holds the render and recognition settings
type OCRConfig struct {
	Pdftoppm    string
	Tesseract   string
	DPI         int
	Language    string
	Concurrency int
	MaxPages    int // 0 renders every page
}

// OCRStrategy renders each page to PNG and runs tesseract on it
type OCRStrategy struct {
	cfg    OCRConfig
	runner Runner
	logger *slog.Logger
}

// NewOCRStrategy creates the last-resort strategy for scanned documents
func NewOCRStrategy(cfg OCRConfig, runner Runner, logger *slog.Logger) *OCRStrategy {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStrategy{cfg: cfg, runner: runner, logger: logger}
}

// Name returns the strategy name
func (s *OCRStrategy) Name() string { return "ocr" }

// Extract renders the pages and recognizes them concurrently, keeping page order
func (s *OCRStrategy) Extract(ctx context.Context, data []byte) (string, error) {
	dir, path, cleanup, err := writeTempPDF(data)
	if err != nil {
		return "", err
	}
	defer cleanup()

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(s.cfg.DPI), "-png"}
	if s.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(s.cfg.MaxPages))
	}
	args = append(args, path, prefix)

	if _, stderr, err := s.runner.Run(ctx, s.cfg.Pdftoppm, args...); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (%s)", err, strings.TrimSpace(string(stderr)))
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order
	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("list rendered pages: %w", err)
	}
	sort.Strings(images)
	if len(images) == 0 {
		return "", fmt.Errorf("pdftoppm produced no images")
	}

	pages := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, image := range images {
		g.Go(func() error {
			out, stderr, err := s.runner.Run(gctx, s.cfg.Tesseract, image, "stdout", "-l", s.cfg.Language)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("OCR failed for page",
					slog.Int("page", i+1),
					slog.String("stderr", truncate(strings.TrimSpace(string(stderr)), 1<<10)),
					slog.Any("error", err),
				)
				return nil
			}
			pages[i] = string(out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	return joinPages(pages), nil
}
