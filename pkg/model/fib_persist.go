package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const ManifestName = "manifest.yaml"

// Manifest describes a PrefixBucketed model saved with SaveDir.
type Manifest struct {
	PrefixBits uint8    `yaml:"prefix_bits"`
	BucketMode string   `yaml:"bucket_mode"`
	MaxError   uint64   `yaml:"max_error"`
	Files      []string `yaml:"files"`
}

// CorrectorFileName is the file name of a bucket's corrector inside a model
// directory.
func CorrectorFileName(bucket int) string {
	return fmt.Sprintf("nn_%d", bucket)
}

// SaveDir writes every bucket's corrector and a manifest into dir, creating
// it if needed, and returns the paths written (manifest last).
func (pb *PrefixBucketed) SaveDir(dir string) ([]string, error) {
	if dir == "" {
		return nil, errors.New("model: output directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	m := Manifest{
		PrefixBits: pb.prefixBits,
		BucketMode: pb.mode.String(),
		MaxError:   pb.maxError,
		Files:      make([]string, 0, len(pb.correctors)),
	}

	paths := make([]string, 0, len(pb.correctors)+1)
	for i, c := range pb.correctors {
		name := CorrectorFileName(i)
		path := filepath.Join(dir, name)
		if err := c.Save(path); err != nil {
			return paths, fmt.Errorf("save bucket %d: %w", i, err)
		}
		m.Files = append(m.Files, name)
		paths = append(paths, path)
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return paths, err
	}
	manifestPath := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return paths, err
	}
	return append(paths, manifestPath), nil
}

// LoadPrefixBucketed restores a model written by SaveDir. The error bound
// comes from the manifest; it is not re-measured.
func LoadPrefixBucketed(dir string) (*PrefixBucketed, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrCorruptParams, err)
	}
	if m.PrefixBits > MaxPrefixBits {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrefix, m.PrefixBits)
	}
	mode, err := ParseBucketMode(m.BucketMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptParams, err)
	}
	if want := 1 << m.PrefixBits; len(m.Files) != want {
		return nil, fmt.Errorf("%w: manifest lists %d files, want %d", ErrCorruptParams, len(m.Files), want)
	}

	pb := &PrefixBucketed{
		prefixBits: m.PrefixBits,
		mode:       mode,
		correctors: make([]*Corrector, len(m.Files)),
		maxError:   m.MaxError,
	}
	for i, name := range m.Files {
		c, err := LoadCorrector(filepath.Join(dir, filepath.Base(name)))
		if err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i, err)
		}
		pb.correctors[i] = c
	}
	return pb, nil
}
