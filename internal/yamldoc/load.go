package yamldoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMultipleDocuments is returned when a stream holds more than one
// YAML document.
var ErrMultipleDocuments = errors.New("multiple documents are not supported")

// ErrDuplicateKey is returned when a mapping repeats a key.
var ErrDuplicateKey = errors.New("duplicate mapping key")

// Load reads and parses the file at path.
func Load(path string) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Value{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a single YAML document. An empty stream yields a null
// Value.
func Parse(data []byte) (Value, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return FromNode(&yaml.Node{Kind: yaml.DocumentNode}), nil
		}
		return Value{}, fmt.Errorf("parse yaml: %w", err)
	}

	var extra yaml.Node
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return Value{}, fmt.Errorf("parse yaml: %w", ErrMultipleDocuments)
		}
		return Value{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := checkDuplicateKeys(&doc); err != nil {
		return Value{}, fmt.Errorf("parse yaml: %w", err)
	}
	return FromNode(&doc), nil
}

// checkDuplicateKeys walks n without following aliases, so every node is
// visited once at its anchor.
func checkDuplicateKeys(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		seen := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				continue
			}
			if line, dup := seen[k.Value]; dup {
				return fmt.Errorf("line %d: %w %q, first defined at line %d", k.Line, ErrDuplicateKey, k.Value, line)
			}
			seen[k.Value] = k.Line
		}
	}
	for _, c := range n.Content {
		if err := checkDuplicateKeys(c); err != nil {
			return err
		}
	}
	return nil
}
