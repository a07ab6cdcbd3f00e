package extraction

import (
	"context"
	"fmt"
	"strings"
)

// LayoutStrategy extracts text with poppler's pdftotext in layout mode
type LayoutStrategy struct {
	Binary string
	Runner Runner
}

// NewLayoutStrategy creates the primary, layout preserving strategy
func NewLayoutStrategy(binary string, runner Runner) *LayoutStrategy {
	if binary == "" {
		binary = "pdftotext"
	}
	return &LayoutStrategy{Binary: binary, Runner: runner}
}

// Name returns the strategy name
func (s *LayoutStrategy) Name() string { return "layout" }

// Extract runs pdftotext and joins the form-feed separated pages
func (s *LayoutStrategy) Extract(ctx context.Context, data []byte) (string, error) {
	_, path, cleanup, err := writeTempPDF(data)
	if err != nil {
		return "", err
	}
	defer cleanup()

	out, stderr, err := s.Runner.Run(ctx, s.Binary, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w (%s)", err, strings.TrimSpace(string(stderr)))
	}

	return joinPages(strings.Split(string(out), "\f")), nil
}
