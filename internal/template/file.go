package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a template file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads a client template from a JSON, YAML or TOML file.
func Load(path string) (*Client, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}

// Decode parses a client template and normalises its points.
func Decode(data []byte, format Format) (*Client, error) {
	var c Client
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &c)
	case FormatYAML:
		err = yaml.Unmarshal(data, &c)
	case FormatTOML:
		err = toml.Unmarshal(data, &c)
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	c.Normalize()
	return &c, nil
}

// Encode serialises a client template.
func Encode(c *Client, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(c, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		return toml.Marshal(c)
	}
	return nil, ErrUnknownFormat
}

// Save writes the template in the format implied by the path's extension.
func (c *Client) Save(path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(c, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
