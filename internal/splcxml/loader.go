// Package splcxml reads variability models stored in the SPLConqueror XML
// format and translates them into modeldef.Definition values.
package splcxml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/modeldef"
)

// DefaultModelName is used when the document root carries no name attribute.
const DefaultModelName = "Variability Model"

var errMissingName = errors.New("missing name")

// Loader is the SPLConqueror implementation of the modeldef.Loader interface.
type Loader struct{}

// NewLoader creates a new SPLConqueror XML loader.
func NewLoader() *Loader {
	return &Loader{}
}

// document mirrors the parts of an SPLConqueror model that are supported.
// Non-boolean and mixed constraints are ignored.
type document struct {
	XMLName     xml.Name
	Name        string     `xml:"name,attr"`
	Binary      *section   `xml:"binaryOptions"`
	Numeric     *section   `xml:"numericOptions"`
	Constraints *entryList `xml:"booleanConstraints"`
}

type section struct {
	Options []option `xml:",any"`
}

type entryList struct {
	Entries []string `xml:",any"`
}

type option struct {
	Name         string     `xml:"name"`
	OutputString string     `xml:"outputString"`
	Parent       string     `xml:"parent"`
	Optional     string     `xml:"optional"`
	Default      *string    `xml:"default"`
	Implied      *entryList `xml:"impliedOptions"`
	Excluded     *entryList `xml:"excludedOptions"`
	MinValue     string     `xml:"minValue"`
	MaxValue     string     `xml:"maxValue"`
	StepFunction string     `xml:"stepFunction"`
}

// Load reads the XML file at path.
func (l *Loader) Load(ctx context.Context, path string) (*modeldef.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("SPLConqueror loader started.", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open variability model %s: %w", path, err)
	}
	defer f.Close()

	def, err := l.Decode(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load variability model %s: %w", path, err)
	}
	logger.Debug("SPLConqueror loading complete.", "model", def.Name, "binary", len(def.Binary), "numeric", len(def.Numeric), "constraints", len(def.Constraints))
	return def, nil
}

// Decode reads a model document from r.
func (l *Loader) Decode(ctx context.Context, r io.Reader) (*modeldef.Definition, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("bad XML document: %w", err)
	}

	def := &modeldef.Definition{Name: DefaultModelName}
	if doc.Name != "" {
		def.Name = doc.Name
	}

	if doc.Binary != nil {
		for i, o := range doc.Binary.Options {
			b, err := translateBinary(ctx, o)
			if err != nil {
				return nil, fmt.Errorf("binary option #%d: %w", i+1, err)
			}
			def.Binary = append(def.Binary, b)
		}
	}
	if doc.Numeric != nil {
		for i, o := range doc.Numeric.Options {
			n, err := translateNumeric(o)
			if err != nil {
				return nil, fmt.Errorf("numeric option #%d (%s): %w", i+1, o.Name, err)
			}
			def.Numeric = append(def.Numeric, n)
		}
	}
	if doc.Constraints != nil {
		for _, c := range doc.Constraints.Entries {
			if c = strings.TrimSpace(c); c != "" {
				def.Constraints = append(def.Constraints, c)
			}
		}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func translateBinary(ctx context.Context, o option) (*modeldef.BinaryOption, error) {
	name := strings.TrimSpace(o.Name)
	if name == "" {
		return nil, errMissingName
	}
	b := &modeldef.BinaryOption{
		Name:        name,
		DisplayName: strings.TrimSpace(o.OutputString),
		Parent:      strings.TrimSpace(o.Parent),
		Relations:   translateRelations(o),
	}
	if v, ok := parseFlag(o.Optional); ok {
		b.Optional = v
	} else if o.Optional != "" {
		ctxlog.FromContext(ctx).Warn("Ignoring unknown optional flag.", "option", name, "value", o.Optional)
	}
	if o.Default != nil {
		if v, ok := parseFlag(*o.Default); ok {
			b.Default = &v
		}
	}
	return b, nil
}

func translateNumeric(o option) (*modeldef.NumericOption, error) {
	name := strings.TrimSpace(o.Name)
	if name == "" {
		return nil, errMissingName
	}
	n := &modeldef.NumericOption{
		Name:         name,
		DisplayName:  strings.TrimSpace(o.OutputString),
		Parent:       strings.TrimSpace(o.Parent),
		StepFunction: strings.TrimSpace(o.StepFunction),
		Relations:    translateRelations(o),
	}

	var err error
	if n.Min, err = parseDecimal(o.MinValue); err != nil {
		return nil, fmt.Errorf("minValue: %w", err)
	}
	if n.Max, err = parseDecimal(o.MaxValue); err != nil {
		return nil, fmt.Errorf("maxValue: %w", err)
	}
	if o.Default != nil {
		v, err := parseDecimal(*o.Default)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		n.Default = &v
	}
	return n, nil
}

func translateRelations(o option) modeldef.Relations {
	var r modeldef.Relations
	if o.Implied != nil {
		for _, e := range o.Implied.Entries {
			if g := modeldef.SplitGroup(e); len(g) > 0 {
				r.Implied = append(r.Implied, g)
			}
		}
	}
	if o.Excluded != nil {
		for _, e := range o.Excluded.Entries {
			if g := modeldef.SplitGroup(e); len(g) > 0 {
				r.Excluded = append(r.Excluded, g)
			}
		}
	}
	return r
}

// parseFlag accepts true/false/1/0 in any case.
func parseFlag(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// parseDecimal parses invariant-culture numbers and also accepts a decimal comma.
func parseDecimal(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
