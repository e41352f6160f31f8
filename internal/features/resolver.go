package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Metadata is the optional document exported alongside the model.
type Metadata struct {
	UniqueValues map[string]json.RawMessage `json:"unique_values"`
	Defaults     map[string]json.RawMessage `json:"defaults"`
}

// Options is the resolver output: choice sets for the categorical fields and
// one default per form field. It is read-only once resolved.
type Options struct {
	Choices  map[string][]string `json:"choices"`
	Owners   []string            `json:"owner_choices"`
	Defaults map[string]Value    `json:"defaults"`
	Fields   []FieldDefinition   `json:"fields"`
}

// Resolution pairs the options with the reason built-ins were used, if any.
// Fallback is nil when the metadata was read cleanly or no path was given.
type Resolution struct {
	Options
	Fallback error
}

// LoadMetadata reads and decodes a metadata document. Errors wrap
// ErrMetadataUnavailable or ErrMetadataMalformed.
func LoadMetadata(path string) (*Metadata, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	var meta Metadata
	if err := json.Unmarshal(blob, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataMalformed, err)
	}
	return &meta, nil
}

// ResolveFile loads metadata from path and resolves options. A missing file
// is not a fallback; unreadable or malformed content is. It never fails.
func ResolveFile(path string) Resolution {
	if path == "" {
		return Resolution{Options: Resolve(nil)}
	}
	meta, err := LoadMetadata(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Resolution{Options: Resolve(nil)}
		}
		return Resolution{Options: Resolve(nil), Fallback: err}
	}
	return Resolution{Options: Resolve(meta)}
}

// Resolve computes choice sets and defaults. A nil meta yields the built-ins.
func Resolve(meta *Metadata) Options {
	if meta == nil {
		meta = &Metadata{}
	}
	opts := Options{
		Choices: make(map[string][]string, len(CategoricalFields)),
		Owners:  OwnerLabels(),
	}
	for _, field := range CategoricalFields {
		if vals := decodeUniqueValues(meta.UniqueValues[field]); len(vals) > 0 {
			sort.Strings(vals)
			opts.Choices[field] = vals
			continue
		}
		opts.Choices[field] = BuiltinChoices(field)
	}

	opts.Defaults = builtinDefaults(opts.Choices[FieldBrand])
	for field, raw := range meta.Defaults {
		if _, known := opts.Defaults[field]; !known {
			continue
		}
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		opts.Defaults[field] = v
	}

	for _, field := range Columns() {
		def, _ := Definition(field)
		if def.Kind == KindCategorical {
			def.Choices = append([]string(nil), opts.Choices[field]...)
		}
		key := field
		if field == FieldOwner {
			key = FieldOwnerText
			def.Choices = OwnerLabels()
		}
		def.Default = opts.Defaults[key]
		opts.Fields = append(opts.Fields, def)
	}
	return opts
}

// decodeUniqueValues accepts a JSON list of scalars. Anything else, including
// an empty list, yields nil so the caller falls back.
func decodeUniqueValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(x))
		}
	}
	return out
}

// Choice reports whether v is an allowed value for a categorical field. An
// empty choice set means free text.
func (o Options) Choice(field, v string) bool {
	choices := o.Choices[field]
	if len(choices) == 0 {
		return true
	}
	for _, c := range choices {
		if c == v {
			return true
		}
	}
	return false
}
