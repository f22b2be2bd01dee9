package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a catalog.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads and parses a catalog file.
func Load(path string) (Catalog, error) {
	format, err := FormatFor(path)
	if err != nil {
		return Catalog{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	cat, err := Parse(data, format)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog. Unknown keys are rejected in both formats.
func Parse(data []byte, format Format) (Catalog, error) {
	var cat Catalog
	switch format {
	case FormatTOML:
		meta, err := toml.Decode(string(data), &cat)
		if err != nil {
			return Catalog{}, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Catalog{}, invalid(undecoded[0].String(), "unknown key")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cat); err != nil && !errors.Is(err, io.EOF) {
			return Catalog{}, err
		}
	default:
		return Catalog{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return cat, nil
}

// LoadCompiled loads and compiles a catalog file.
func LoadCompiled(path string) (*Compiled, error) {
	cat, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(cat)
}
