package stage

import (
	"os"
	"path/filepath"
	"strings"

	"tome/internal/catalog"
	"tome/internal/services"
)

// ArtifactDir returns the staging directory stage outputs for the document
// belong in: the directory holding the staged source copy.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ArtifactDir(doc *catalog.Document) (string, error) {
	if doc == nil || strings.TrimSpace(doc.StagedPath) == "" {
		return "", services.Wrap(
			services.ErrValidation, "stage", "artifact dir",
			"Document has no staged copy; resubmit the source file", nil)
	}
	return filepath.Dir(doc.StagedPath), nil
}

// WriteArtifact writes a stage output beside the staged source and returns
// the artifact path. Write failures classify transient so the attempt can be
// retried once disk pressure clears.
func WriteArtifact(doc *catalog.Document, name string, data []byte) (string, error) {
	dir, err := ArtifactDir(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", services.Wrap(
			services.ErrTransient, "stage", "write artifact",
			"Failed writing "+name, err)
	}
	return path, nil
}

// ReadArtifact loads an artifact a prerequisite stage produced. A missing
// artifact classifies not-found because the dependency graph guarantees the
// producer already ran.
func ReadArtifact(doc *catalog.Document, name string) ([]byte, error) {
	dir, err := ArtifactDir(doc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(
				services.ErrNotFound, "stage", "read artifact",
				"Missing artifact "+name, err)
		}
		return nil, services.Wrap(
			services.ErrTransient, "stage", "read artifact",
			"Failed reading "+name, err)
	}
	return data, nil
}
