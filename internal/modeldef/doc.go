// Package modeldef defines the format-agnostic declaration of a variability
// model, along with the Loader interface for reading such declarations from
// the supported source formats.
//
// A Definition is plain data: option names, relations as name groups, numeric
// ranges and step functions. It is the single input of feature.Build.
// Concrete loaders live in separate packages (splcxml for SPLConqueror XML,
// hcl_adapter for HCL).
package modeldef
