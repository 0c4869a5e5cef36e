// Package config loads and validates project descriptions.
//
// Projects are authored as YAML and checked against an embedded CUE
// schema before decoding, so every downstream consumer can assume the
// settings are complete and well-typed.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Project describes a renderable project: the output geometry, the
// playback rate, and the ordered list of scenes.
type Project struct {
	Name string  `yaml:"name"`
	FPS  float64 `yaml:"fps"`

	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float64 `yaml:"scale"`

	ColorSpace string `yaml:"colorSpace"`

	MotionBlur int    `yaml:"motionBlur"`
	Background string `yaml:"background"`

	Scenes []Scene `yaml:"scenes"`
}

// Scene describes a single scene entry within a project.
type Scene struct {
	Name     string `yaml:"name"`
	Duration int    `yaml:"duration"`

	Transition    int  `yaml:"transition"`
	PreviousOnTop bool `yaml:"previousOnTop"`
}

// LoadError reports a failure to load or validate a project file.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Load reads a project file, validates it against the schema, and
// decodes it. Unknown fields are rejected.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("reading project file: %v", err)}
	}
	return Parse(path, data)
}

// Parse validates and decodes a project document. The path is used
// only for error reporting.
func Parse(path string, data []byte) (*Project, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("compiling schema: %v", err)}
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("parsing YAML: %v", err)}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("building document: %v", err)}
	}

	def := schema.LookupPath(cue.ParsePath("#Project"))
	if err := def.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("resolving schema: %v", err)}
	}
	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("validating project: %v", err)}
	}

	var p Project
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("decoding project: %v", err)}
	}
	applyDefaults(&p)
	return &p, nil
}

func applyDefaults(p *Project) {
	if p.Scale == 0 {
		p.Scale = 1
	}
	if p.ColorSpace == "" {
		p.ColorSpace = "srgb"
	}
}
