package protean

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/getprotean/protean/internal/manifest"
)

// LoadManifest declares every protocol named in a protocols.yaml file.
// Declarations are applied in manifest order; on the first failing
// declaration the error is returned and later entries are skipped
// (already-applied declarations stay in place, each one being atomic).
func (rt *Runtime) LoadManifest(path string) ([]*Protocol, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return rt.DeclareManifest(m)
}

// DeclareManifest declares every protocol of a parsed manifest.
func (rt *Runtime) DeclareManifest(m *manifest.Manifest) ([]*Protocol, error) {
	out := make([]*Protocol, 0, len(m.Protocols))
	for _, mp := range m.Protocols {
		ops := make([]OpSpec, len(mp.Operations))
		for i, mo := range mp.Operations {
			ops[i] = OpSpec{Name: mo.Name, Arities: mo.Arities, Method: mo.Method}
		}
		var opts []DeclareOption
		if mp.Capability != "" {
			id, err := uuid.Parse(mp.Capability)
			if err != nil {
				return out, fmt.Errorf("manifest protocol %s: %w", mp.Name, err)
			}
			opts = append(opts, WithCapabilityID(id))
		}
		p, err := rt.Declare(mp.Name, ops, opts...)
		if err != nil {
			return out, fmt.Errorf("declaring manifest protocol %s: %w", mp.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
