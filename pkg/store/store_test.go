package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/errors"
)

func newRecord(t *testing.T) *Record {
	t.Helper()
	seed := uint64(4)
	opts := design.Options{Genotypes: []string{"A", "B", "C"}, Blocks: 2, Seed: &seed}
	_, book, err := design.Generate(opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return NewRecord("trial", opts, book)
}

func exercise(t *testing.T, s Store) {
	ctx := context.Background()

	first := newRecord(t)
	if !ValidID(first.ID) {
		t.Fatalf("ID %q is not a UUID", first.ID)
	}
	if first.Book.ID != first.ID {
		t.Errorf("Book.ID = %q, want %q", first.Book.ID, first.ID)
	}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := newRecord(t)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "trial" || got.Book.Len() != first.Book.Len() {
		t.Errorf("Get() = %+v", got)
	}

	list, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Errorf("List(1) = %v, want newest record %s", list, second.ID)
	}

	if err := s.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, first.ID); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get after Delete error = %v, want NOT_FOUND", err)
	}
	if err := s.Delete(ctx, first.ID); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("second Delete error = %v, want NOT_FOUND", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemoryIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	rec := newRecord(t)
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec.Book.Plots[0].Genotype = "mutated"

	got, _ := s.Get(ctx, rec.ID)
	if got.Book.Plots[0].Genotype == "mutated" {
		t.Error("store shares the caller's book")
	}
}

func TestMemoryRejectsMissingID(t *testing.T) {
	if err := NewMemory().Save(context.Background(), &Record{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Save() error = %v, want INVALID_INPUT", err)
	}
}

// Set FIELDBOOK_TEST_MONGO=mongodb://localhost:27017 to run against a live server.
func TestMongo(t *testing.T) {
	uri := os.Getenv("FIELDBOOK_TEST_MONGO")
	if uri == "" {
		t.Skip("FIELDBOOK_TEST_MONGO not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMongo(ctx, uri, "fieldbook_test", "layouts_"+time.Now().Format("150405"))
	if err != nil {
		t.Fatalf("NewMongo: %v", err)
	}
	defer s.Close(ctx)
	defer s.coll.Drop(ctx)

	exercise(t, s)
}
