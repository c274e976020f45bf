// Package catalog holds the fixed exercise catalog. Exercises are defined
// in an embedded YAML file; the order in that file is the canonical order
// used everywhere else (session building walks it cyclically).
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Type classifies an exercise by the kind of movement it is built on.
type Type string

const (
	TypeCardio  Type = "cardio"
	TypeSquat   Type = "squat"
	TypeLunge   Type = "lunge"
	TypePlank   Type = "plank"
	TypeCore    Type = "core"
	TypeStretch Type = "stretch"
)

// AllTypes lists every exercise type in display order.
var AllTypes = []Type{TypeCardio, TypeSquat, TypeLunge, TypePlank, TypeCore, TypeStretch}

// Valid reports whether t is one of the known exercise types.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Exercise is one entry of the catalog. Asymmetrical exercises work one
// side of the body at a time and are performed twice in a row, left then
// right.
type Exercise struct {
	Name         string `yaml:"name"`
	Short        string `yaml:"short,omitempty"`
	Type         Type   `yaml:"type"`
	Asymmetrical bool   `yaml:"asymmetrical"`
}

// DisplayName is the short name shown where space is tight, such as the
// rest-step preview. Falls back to the full name.
func (e Exercise) DisplayName() string {
	if e.Short != "" {
		return e.Short
	}
	return e.Name
}

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Exercises []Exercise `yaml:"exercises"`
}

var exercises []Exercise

func init() {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		panic(fmt.Sprintf("catalog: parsing embedded catalog.yaml: %v", err))
	}
	for _, ex := range file.Exercises {
		if !ex.Type.Valid() {
			panic(fmt.Sprintf("catalog: exercise %q has unknown type %q", ex.Name, ex.Type))
		}
	}
	exercises = file.Exercises
}

// All returns the full catalog in canonical order. The returned slice is
// a copy and safe to modify.
func All() []Exercise {
	out := make([]Exercise, len(exercises))
	copy(out, exercises)
	return out
}

// Filter returns the exercises whose type is in the selection, preserving
// catalog order. An empty selection yields an empty result.
func Filter(selected []Type) []Exercise {
	want := make(map[Type]bool, len(selected))
	for _, t := range selected {
		want[t] = true
	}

	var out []Exercise
	for _, ex := range exercises {
		if want[ex.Type] {
			out = append(out, ex)
		}
	}
	return out
}
