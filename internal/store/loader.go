package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSeed is returned when a seed file cannot be decoded.
var ErrInvalidSeed = errors.New("invalid seed file")

// Loader produces a fresh Dataset from the CRUD layer's storage.
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// FileLoader reads a Dataset from a YAML seed file. It is meant for lab
// deployments and tests where no database is available.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) (*Dataset, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSeed, l.Path, err)
	}
	return &ds, nil
}
