package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/command"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/events"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const seedYAML = `---
bookmarks:
  - title: Go
    url: https://go.dev
    rating: 5
    favorite: true
  - title: Private notes
    url: https://${SEED_TEST_HOST}/notes
    public: false
    owner: 7
  - url: https://pkg.go.dev
  - title: No url
  - title: Bad rating
    url: https://example.com
    rating: 9
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	t.Setenv("SEED_TEST_HOST", "notes.internal")
	path := writeSeed(t, seedYAML)

	file, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(file.Bookmarks) != 5 {
		t.Fatalf("Load() = %d entries, want 5", len(file.Bookmarks))
	}
	if got := file.Bookmarks[1].URL; got != "https://notes.internal/notes" {
		t.Errorf("env reference not expanded, got %q", got)
	}
	if file.Bookmarks[1].Owner == nil || *file.Bookmarks[1].Owner != 7 {
		t.Errorf("owner not parsed: %v", file.Bookmarks[1].Owner)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load(); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	path := writeSeed(t, "bookmarks: [unclosed")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Load() should fail for invalid yaml")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SEED_A", "alpha")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set variable", input: "x ${SEED_A} y", expected: "x alpha y"},
		{name: "unset variable", input: "${SEED_UNSET_VAR}", expected: ""},
		{name: "bare dollar kept", input: "https://example.com/$path", expected: "https://example.com/$path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(expandEnv([]byte(tt.input))); got != tt.expected {
				t.Errorf("expandEnv() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMap(t *testing.T) {
	private := false
	file := File{Bookmarks: []Entry{
		{Title: "Go", URL: " https://go.dev "},
		{URL: "https://pkg.go.dev"},
		{Title: "no url"},
		{Title: "private", URL: "https://x.example", Public: &private},
	}}

	items, err := Map(file)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Map() = %d items, want 3", len(items))
	}
	if items[0].Input.URL != "https://go.dev" || !items[0].Input.Public {
		t.Errorf("items[0] = %+v", items[0].Input)
	}
	if items[1].Input.Title != "https://pkg.go.dev" {
		t.Errorf("title should default to url, got %q", items[1].Input.Title)
	}
	if items[2].Input.Public {
		t.Error("explicit public: false was ignored")
	}

	if _, err := Map(File{}); err == nil {
		t.Error("Map() of an empty file should fail")
	}
}

func TestImporterRun(t *testing.T) {
	t.Setenv("SEED_TEST_HOST", "notes.internal")
	path := writeSeed(t, seedYAML)

	idx := index.NewMemoryIndex()
	bus := events.NewBus(events.DefaultCapacity, nil)
	sub := bus.Subscribe(nil)
	defer sub.Close()

	svc := command.NewService(idx, bus, logger.NewNop())
	im := NewImporter(path, svc, idx, logger.NewNop())

	n, err := im.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// "No url" is dropped by Map, "Bad rating" by validation
	if n != 3 {
		t.Fatalf("Run() imported %d, want 3", n)
	}
	if sub.Len() != 3 {
		t.Errorf("expected 3 Created events, got %d", sub.Len())
	}

	private, err := idx.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get(2) error = %v", err)
	}
	if private.Public || !private.OwnedBy(7) {
		t.Errorf("private entry imported as %+v", private)
	}
	if !domain.CanView(private, &domain.Principal{ID: 7}) || domain.CanView(private, nil) {
		t.Error("private entry visibility is wrong")
	}

	// Second run is a no-op
	n, err = im.Run(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second Run() = %d, %v; want 0, nil", n, err)
	}
}
