package facts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed manifest.schema.json
var manifestSchemaJSON string

const manifestSchemaURL = "https://sift.invalid/schema/manifest.json"

var (
	manifestSchema    *jsonschema.Schema
	manifestSchemaErr error
	manifestOnce      sync.Once
)

func compiledManifestSchema() (*jsonschema.Schema, error) {
	manifestOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(manifestSchemaJSON))
		if err != nil {
			manifestSchemaErr = fmt.Errorf("parse manifest schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(manifestSchemaURL, doc); err != nil {
			manifestSchemaErr = fmt.Errorf("add manifest schema: %w", err)
			return
		}
		manifestSchema, manifestSchemaErr = c.Compile(manifestSchemaURL)
	})
	return manifestSchema, manifestSchemaErr
}

// Manifest is the subset of a package.json that analysis needs.
type Manifest struct {
	Path                 string            `json:"path" toon:"path"`
	Dir                  string            `json:"dir" toon:"dir"`
	Name                 string            `json:"name,omitempty" toon:"name,omitempty"`
	Main                 string            `json:"main,omitempty" toon:"main,omitempty"`
	Bin                  map[string]string `json:"bin,omitempty" toon:"bin,omitempty"`
	Scripts              map[string]string `json:"scripts,omitempty" toon:"scripts,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty" toon:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty" toon:"devDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty" toon:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty" toon:"optionalDependencies,omitempty"`
	Errors               []string          `json:"errors,omitempty" toon:"errors,omitempty"`
}

type rawManifest struct {
	Name                 string            `json:"name"`
	Main                 string            `json:"main"`
	Bin                  json.RawMessage   `json:"bin"`
	Scripts              map[string]string `json:"scripts"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	DevDependenciesAlt   map[string]string `json:"dev-dependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// ParseManifest decodes a package.json. It never fails: malformed JSON or a
// document that violates the manifest schema yields empty maps and an entry
// in Errors.
func ParseManifest(rel string, content []byte) *Manifest {
	m := &Manifest{
		Path:                 rel,
		Dir:                  path.Dir(rel),
		Bin:                  map[string]string{},
		Scripts:              map[string]string{},
		Dependencies:         map[string]string{},
		DevDependencies:      map[string]string{},
		PeerDependencies:     map[string]string{},
		OptionalDependencies: map[string]string{},
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		m.Errors = append(m.Errors, fmt.Sprintf("malformed manifest: %v", err))
		return m
	}
	schema, err := compiledManifestSchema()
	if err != nil {
		m.Errors = append(m.Errors, err.Error())
		return m
	}
	if err := schema.Validate(inst); err != nil {
		m.Errors = append(m.Errors, fmt.Sprintf("invalid manifest: %v", err))
		return m
	}

	var raw rawManifest
	if err := json.Unmarshal(content, &raw); err != nil {
		m.Errors = append(m.Errors, fmt.Sprintf("malformed manifest: %v", err))
		return m
	}

	m.Name = raw.Name
	m.Main = raw.Main
	if len(raw.Bin) > 0 {
		var single string
		if err := json.Unmarshal(raw.Bin, &single); err == nil {
			name := raw.Name
			if name == "" {
				name = path.Base(m.Dir)
			}
			m.Bin[name] = single
		} else {
			_ = json.Unmarshal(raw.Bin, &m.Bin)
		}
	}
	copyInto(m.Scripts, raw.Scripts)
	copyInto(m.Dependencies, raw.Dependencies)
	copyInto(m.DevDependencies, raw.DevDependencies)
	copyInto(m.DevDependencies, raw.DevDependenciesAlt)
	copyInto(m.PeerDependencies, raw.PeerDependencies)
	copyInto(m.OptionalDependencies, raw.OptionalDependencies)
	return m
}

func copyInto(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

// Manifest dependency sections.
const (
	SectionRuntime  = "dependencies"
	SectionDev      = "devDependencies"
	SectionPeer     = "peerDependencies"
	SectionOptional = "optionalDependencies"
)

// DeclaredDependency is one dependency entry of a manifest.
type DeclaredDependency struct {
	Name    string
	Version string
	Section string
}

// AllDependencies returns every declared dependency across all sections,
// sorted by name then section. A name declared in more than one section
// of the same manifest appears once per section.
func (m *Manifest) AllDependencies() []DeclaredDependency {
	var deps []DeclaredDependency
	sections := []struct {
		name string
		deps map[string]string
	}{
		{SectionRuntime, m.Dependencies},
		{SectionDev, m.DevDependencies},
		{SectionPeer, m.PeerDependencies},
		{SectionOptional, m.OptionalDependencies},
	}
	for _, s := range sections {
		for name, version := range s.deps {
			deps = append(deps, DeclaredDependency{Name: name, Version: version, Section: s.name})
		}
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Name != deps[j].Name {
			return deps[i].Name < deps[j].Name
		}
		return deps[i].Section < deps[j].Section
	})
	return deps
}
