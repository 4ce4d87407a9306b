package storage

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// TestLocalBackend_BasicOperations tests the LocalBackend implementation
func TestLocalBackend_BasicOperations(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	backend, err := NewLocalBackend(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to create LocalBackend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	t.Run("Write and Read", func(t *testing.T) {
		testPath := "rawacf/data.dmap"
		testData := []byte("hello world")

		if err := backend.Write(ctx, testPath, testData); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		data, err := backend.Read(ctx, testPath)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}

		if string(data) != string(testData) {
			t.Errorf("Read data = %q, want %q", string(data), string(testData))
		}
	})

	t.Run("Exists", func(t *testing.T) {
		testPath := "rawacf/exists.dmap"

		exists, err := backend.Exists(ctx, testPath)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("Expected file to not exist")
		}

		if err := backend.Write(ctx, testPath, []byte("data")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		exists, err = backend.Exists(ctx, testPath)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("Expected file to exist")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		testPath := "rawacf/delete.dmap"

		if err := backend.Write(ctx, testPath, []byte("data")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		if err := backend.Delete(ctx, testPath); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		exists, err := backend.Exists(ctx, testPath)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("Expected file to be deleted")
		}

		// Deleting a missing file is not an error
		if err := backend.Delete(ctx, testPath); err != nil {
			t.Errorf("Delete of missing file failed: %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		files := []string{
			"site/1558583991500.arrow",
			"site/1558583994750.arrow",
			"site/nested/1558583998000.arrow",
		}
		for _, f := range files {
			if err := backend.Write(ctx, f, []byte("data")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}

		listed, err := backend.List(ctx, "site/")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}

		if len(listed) != len(files) {
			t.Errorf("List returned %d files, want %d: %v", len(listed), len(files), listed)
		}
	})

	t.Run("List missing prefix", func(t *testing.T) {
		listed, err := backend.List(ctx, "nothing-here/")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(listed) != 0 {
			t.Errorf("List returned %v, want empty", listed)
		}
	})
}

func TestLocalBackend_PathTraversal(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	backend, err := NewLocalBackend(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to create LocalBackend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	// Traversal components are neutralized, so the write lands inside
	// the base path rather than escaping it.
	if err := backend.Write(ctx, "../escape.txt", []byte("data")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(backend.GetBasePath() + "/_/escape.txt"); err != nil {
		t.Errorf("sanitized write not found under base path: %v", err)
	}
}
