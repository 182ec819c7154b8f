package seed

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/command"
)

// Item is a mapped entry ready for import.
type Item struct {
	Input command.CreateInput
	Owner *int64
}

// Map converts the seed file into import items, skipping entries without url.
// Titles default to the url.
func Map(file File) ([]Item, error) {
	items := make([]Item, 0, len(file.Bookmarks))

	for _, e := range file.Bookmarks {
		url := strings.TrimSpace(e.URL)
		if url == "" {
			continue
		}

		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = url
		}

		public := true
		if e.Public != nil {
			public = *e.Public
		}

		items = append(items, Item{
			Input: command.CreateInput{
				Title:       title,
				URL:         url,
				Description: e.Description,
				Public:      public,
				Favorite:    e.Favorite,
				Rating:      e.Rating,
			},
			Owner: e.Owner,
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in seed file")
	}

	return items, nil
}
