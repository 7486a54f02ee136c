package calendar

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

// Open returns a reader over a calendar file path or an http(s) URL.
func (imp *Importer) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if isURL(source) {
		return imp.parser.Fetch(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening calendar file: %w", err)
	}
	return f, nil
}

// ImportFromSource opens source and runs the pipeline for kind over it.
func (imp *Importer) ImportFromSource(ctx context.Context, kind models.ImportKind, source string) (*models.ImportResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}

	rc, err := imp.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return imp.Import(ctx, kind, rc, source)
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
