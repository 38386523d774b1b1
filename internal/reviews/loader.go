package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"ms-volunteering/internal/logger"
)

// Loader reads the review file into a Store. It is called once at startup
// and again whenever a refresh is requested.
type Loader struct {
	Path   string
	Store  Store
	Logger *logger.Logger
}

func NewLoader(path string, store Store, log *logger.Logger) *Loader {
	return &Loader{Path: path, Store: store, Logger: log}
}

// Refresh replaces the stored reviews with the file contents and returns how
// many were loaded. A missing file empties the store. A malformed file is an
// error and leaves the store untouched.
func (l *Loader) Refresh(ctx context.Context) (int, error) {
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		l.Logger.Warn("REVIEWS", fmt.Sprintf("Review file %s not found, serving no reviews", l.Path))
		return 0, l.Store.Load(ctx, nil)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", l.Path, err)
	}

	var list []Review
	if err := json.Unmarshal(data, &list); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", l.Path, err)
	}
	if err := l.Store.Load(ctx, list); err != nil {
		return 0, err
	}

	l.Logger.Info("REVIEWS", fmt.Sprintf("Loaded %d reviews from %s", len(list), l.Path))
	return len(list), nil
}
