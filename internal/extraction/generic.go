package extraction

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// GenericStrategy decodes the PDF in process without external tools
type GenericStrategy struct{}

// NewGenericStrategy creates the secondary strategy
func NewGenericStrategy() *GenericStrategy {
	return &GenericStrategy{}
}

// Name returns the strategy name
func (s *GenericStrategy) Name() string { return "generic" }

// Extract walks every page and collects its plain text
func (s *GenericStrategy) Extract(ctx context.Context, data []byte) (text string, err error) {
	// the decoder panics on some malformed cross reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("decode pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}

	return joinPages(pages), nil
}
