// Package manifest parses protocol manifests: YAML files declaring
// protocols and their operations at startup, the configuration-time
// analog of code-driven Declare calls.
//
// Example protocols.yaml:
//
//	protocols:
//	  - name: Shape
//	    operations:
//	      - name: area
//	        arities: [1]
//	      - name: scale
//	        arities: [2]
//	        method: ScaleBy
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Manifest is the top-level protocols.yaml structure.
type Manifest struct {
	Protocols []Protocol `yaml:"protocols"`
}

// Protocol declares one protocol.
type Protocol struct {
	// Name is the protocol name, unique within the manifest.
	Name string `yaml:"name"`

	// Capability optionally fixes the capability id (a UUID string).
	// When omitted a fresh id is generated at declaration time.
	Capability string `yaml:"capability,omitempty"`

	// Operations lists the protocol's operations in order.
	Operations []Operation `yaml:"operations"`
}

// Operation declares one operation.
type Operation struct {
	// Name is the operation name, unique within the protocol.
	Name string `yaml:"name"`

	// Arities lists accepted argument counts, receiver included.
	// Every entry must be at least 1.
	Arities []int `yaml:"arities"`

	// Method overrides the Go method name used on the native path.
	Method string `yaml:"method,omitempty"`
}

// Load reads and parses a protocol manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses manifest content from bytes.
// The path argument is used only for error messages.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := m.validate(path); err != nil {
		return nil, err
	}
	return &m, nil
}

// Find searches dir and its parents for a manifest file, returning the
// path or empty string when none exists.
func Find(dir, filename string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the manifest for semantic errors.
func (m *Manifest) validate(path string) error {
	if len(m.Protocols) == 0 {
		return fmt.Errorf("%s: no protocols defined", path)
	}
	seenProtocols := make(map[string]bool)
	for i, p := range m.Protocols {
		if p.Name == "" {
			return fmt.Errorf("%s: protocols[%d]: name is required", path, i)
		}
		if seenProtocols[p.Name] {
			return fmt.Errorf("%s: protocols[%d]: duplicate protocol %s", path, i, p.Name)
		}
		seenProtocols[p.Name] = true

		if p.Capability != "" {
			if _, err := uuid.Parse(p.Capability); err != nil {
				return fmt.Errorf("%s: protocol %s: capability is not a valid uuid: %w", path, p.Name, err)
			}
		}
		if len(p.Operations) == 0 {
			return fmt.Errorf("%s: protocol %s: at least one operation is required", path, p.Name)
		}

		seenOps := make(map[string]bool)
		for j, op := range p.Operations {
			if op.Name == "" {
				return fmt.Errorf("%s: protocol %s: operations[%d]: name is required", path, p.Name, j)
			}
			if seenOps[op.Name] {
				return fmt.Errorf("%s: protocol %s: duplicate operation %s", path, p.Name, op.Name)
			}
			seenOps[op.Name] = true
			if len(op.Arities) == 0 {
				return fmt.Errorf("%s: protocol %s: operation %s: arities is required", path, p.Name, op.Name)
			}
			for _, a := range op.Arities {
				if a < 1 {
					return fmt.Errorf("%s: protocol %s: operation %s: arity %d is below 1 (the receiver always counts)", path, p.Name, op.Name, a)
				}
			}
		}
	}
	return nil
}
