// This file contains the Go structs that mirror the HCL model schema. They are
// decoded by gohcl and never leave this package.

package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Models []*ModelBlock `hcl:"model,block"`
	Remain hcl.Body      `hcl:",remain"`
}

// ModelBlock is a `model "<name>" { ... }` block. A model may be spread over
// several files; blocks are merged in file order.
type ModelBlock struct {
	Name        string                `hcl:"name,label"`
	Binary      []*BinaryOptionBlock  `hcl:"binary_option,block"`
	Numeric     []*NumericOptionBlock `hcl:"numeric_option,block"`
	Constraints []string              `hcl:"constraints,optional"`
}

// BinaryOptionBlock is a `binary_option "<name>" { ... }` block.
type BinaryOptionBlock struct {
	Name     string         `hcl:"name,label"`
	Display  *string        `hcl:"display,optional"`
	Parent   *string        `hcl:"parent,optional"`
	Optional *bool          `hcl:"optional,optional"`
	Default  hcl.Expression `hcl:"default,optional"`
	Implies  []string       `hcl:"implies,optional"`
	Excludes []string       `hcl:"excludes,optional"`
}

// NumericOptionBlock is a `numeric_option "<name>" { ... }` block.
type NumericOptionBlock struct {
	Name         string         `hcl:"name,label"`
	Display      *string        `hcl:"display,optional"`
	Parent       *string        `hcl:"parent,optional"`
	Min          float64        `hcl:"min"`
	Max          float64        `hcl:"max"`
	Step         *float64       `hcl:"step,optional"`
	StepFunction *string        `hcl:"step_function,optional"`
	Default      hcl.Expression `hcl:"default,optional"`
	Implies      []string       `hcl:"implies,optional"`
	Excludes     []string       `hcl:"excludes,optional"`
}
