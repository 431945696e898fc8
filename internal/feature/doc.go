// Package feature holds the in-memory variability model: binary and numeric
// options, their hierarchy, exclusion and implication relations, the indexing
// structures used to align external weight arrays, and the enumeration of
// numeric option domains through their step functions.
//
// Options are a closed tagged variant (see Kind). Every consumer switches on
// the kind instead of probing concrete types.
//
// A Model is not safe for concurrent mutation. Value changes and validation
// results are announced to subscribers registered with Model.Subscribe; the
// model never calls into presentation code directly.
package feature
