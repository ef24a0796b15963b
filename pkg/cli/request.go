package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile decodes a YAML or JSON file into v, rejecting unknown fields so
// that a misspelled key is an error rather than a silent default. The path
// "-" reads stdin.
func LoadFile(path string, v any) error {
	if path == "-" {
		return Decode(os.Stdin, "", v)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()
	return Decode(f, path, v)
}

// Decode reads r to the end and decodes it into v. A name ending in .json
// selects JSON and .yaml or .yml YAML; otherwise JSON is tried first, since
// every JSON document is also YAML but with worse error messages.
func Decode(r io.Reader, name string, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return decodeJSON(data, v)
	case ".yaml", ".yml":
		return decodeYAML(data, v)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return decodeJSON(data, v)
	}
	return decodeYAML(data, v)
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}
