package seed

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/command"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// Creator is the write path the importer goes through, so imported
// records are published like any other creation.
type Creator interface {
	Import(ctx context.Context, in command.CreateInput, owner *int64) (*domain.Bookmark, error)
}

// Counter reports how many records the store holds.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type Importer struct {
	loader  *Loader
	creator Creator
	counter Counter
	log     logger.Logger
}

func NewImporter(filePath string, creator Creator, counter Counter, log logger.Logger) *Importer {
	return &Importer{
		loader:  NewLoader(filePath),
		creator: creator,
		counter: counter,
		log:     log,
	}
}

// Run imports the seed file into an empty store. A store that already
// holds records is left untouched. Invalid entries are logged and skipped.
func (im *Importer) Run(ctx context.Context) (int, error) {
	n, err := im.counter.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	if n > 0 {
		im.log.Info("store not empty, skipping seed import", logger.Int64("bookmarks", n))
		return 0, nil
	}

	file, err := im.loader.Load()
	if err != nil {
		return 0, err
	}
	items, err := Map(file)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if _, err := im.creator.Import(ctx, item.Input, item.Owner); err != nil {
			im.log.Warn("skipping seed entry",
				logger.String("url", item.Input.URL),
				logger.Error(err))
			continue
		}
		imported++
	}

	im.log.Info("📚 seed import done",
		logger.Int("imported", imported),
		logger.Int("skipped", len(items)-imported))
	return imported, nil
}
