package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the built-in menu.
func Default() (Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// fileLoader implements Loader for YAML catalog files on disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based catalog loader.
// An empty path loads the built-in menu.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

// Load reads a YAML catalog file and returns a Catalog.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if filePath == "" {
		c, err := Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
		}
		l.logger.Info().Int("products_loaded", c.Size()).Msg("built-in catalog loaded")
		return c, nil
	}

	l.logger.Info().Str("file", filePath).Msg("loading catalog file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open catalog file")
		return nil, fmt.Errorf("failed to open catalog file %s: %w", filePath, err)
	}
	defer file.Close()

	c, err := Parse(file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to parse catalog file")
		return nil, fmt.Errorf("catalog file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("products_loaded", c.Size()).
		Msg("catalog file loaded successfully")

	return c, nil
}
