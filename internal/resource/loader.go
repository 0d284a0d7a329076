package resource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for constraint files with an unsupported extension.
var ErrUnknownFormat = errors.New("unknown constraint file format")

// File is the on-disk description of a resource library and its constraint table.
//
// YAML:
//
//	types:
//	  - kind: MUL
//	    delay: 2
//	resources:
//	  - name: alu
//	    kinds: [ADD, SUB]
//	    count: 2
//
// HCL:
//
//	type "MUL" { delay = 2 }
//	resource "alu" {
//	  kinds = ["ADD", "SUB"]
//	  count = 2
//	}
type File struct {
	Types     []TypeDef     `yaml:"types" json:"types" hcl:"type,block"`
	Resources []ResourceDef `yaml:"resources" json:"resources" hcl:"resource,block"`
}

// TypeDef declares the delay of one operation kind.
type TypeDef struct {
	Kind  string `yaml:"kind" json:"kind" hcl:"kind,label"`
	Delay int    `yaml:"delay" json:"delay" hcl:"delay"`
}

// ResourceDef declares a resource instance. Count > 1 expands it into
// name0..name{count-1}.
type ResourceDef struct {
	Name  string   `yaml:"name" json:"name" hcl:"name,label"`
	Kinds []string `yaml:"kinds" json:"kinds" hcl:"kinds"`
	Count int      `yaml:"count,omitempty" json:"count,omitempty" hcl:"count,optional"`
}

// Load reads a constraint file. The format is picked by extension:
// .yaml/.yml for YAML, .hcl for HCL.
func Load(path string) (*Library, *Constraints, error) {
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read constraints %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, nil, fmt.Errorf("parse constraints %s: %w", path, err)
		}
	case ".hcl":
		if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
			return nil, nil, fmt.Errorf("parse constraints %s: %w", path, err)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return f.Compile()
}

// Compile validates the description and turns it into a Library and Constraints.
func (f *File) Compile() (*Library, *Constraints, error) {
	var errs []string
	lib := NewLibrary()
	for i, t := range f.Types {
		if strings.TrimSpace(t.Kind) == "" {
			errs = append(errs, fmt.Sprintf("types[%d]: kind is required", i))
			continue
		}
		if t.Delay < 0 {
			errs = append(errs, fmt.Sprintf("type %s: delay must be >= 0", t.Kind))
			continue
		}
		lib.Define(t.Kind, t.Delay)
	}

	rc := NewConstraints()
	for i, r := range f.Resources {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("resources[%d]: name is required", i))
			continue
		}
		if len(r.Kinds) == 0 {
			errs = append(errs, fmt.Sprintf("resource %s: kinds must not be empty", r.Name))
			continue
		}
		switch {
		case r.Count < 0:
			errs = append(errs, fmt.Sprintf("resource %s: count must be >= 0", r.Name))
		case r.Count <= 1:
			rc.Add(r.Name, r.Kinds...)
		default:
			for n := 0; n < r.Count; n++ {
				rc.Add(fmt.Sprintf("%s%d", r.Name, n), r.Kinds...)
			}
		}
	}

	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("constraint errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return lib, rc, nil
}
