package domain

import (
	"encoding/json"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// VariantKind distinguishes the three shapes a variant selection can take.
type VariantKind int

const (
	// VariantBool is an on/off option such as +shared or ~shared.
	VariantBool VariantKind = iota
	// VariantSingle selects exactly one value, e.g. build_type=Release.
	VariantSingle
	// VariantMulti selects a set of values, e.g. libs=shared,static.
	VariantMulti
)

// Variant is a resolved variant selection.
// Multi-valued selections are kept sorted and deduplicated so that equal sets compare equal.
type Variant struct {
	Kind    VariantKind
	Enabled bool
	Values  []string
}

// BoolVariant returns a boolean variant selection.
func BoolVariant(enabled bool) Variant {
	return Variant{Kind: VariantBool, Enabled: enabled}
}

// SingleVariant returns a single-valued variant selection.
func SingleVariant(value string) Variant {
	return Variant{Kind: VariantSingle, Values: []string{value}}
}

// MultiVariant returns a multi-valued variant selection in canonical order.
func MultiVariant(values ...string) Variant {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Variant{Kind: VariantMulti, Values: slices.Compact(sorted)}
}

// String renders the selected value(s) without the variant name.
func (v Variant) String() string {
	switch v.Kind {
	case VariantBool:
		if v.Enabled {
			return "true"
		}
		return "false"
	default:
		return strings.Join(v.Values, ",")
	}
}

// Equal reports whether two selections are identical.
func (v Variant) Equal(other Variant) bool {
	return v.Kind == other.Kind && v.Enabled == other.Enabled && slices.Equal(v.Values, other.Values)
}

// format renders the variant the way it appears in a spec string.
func (v Variant) format(name string) string {
	if v.Kind == VariantBool {
		if v.Enabled {
			return "+" + name
		}
		return "~" + name
	}
	return name + "=" + v.String()
}

// MarshalJSON encodes booleans as JSON booleans, single values as strings and sets as arrays.
func (v Variant) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case VariantBool:
		return json.Marshal(v.Enabled)
	case VariantSingle:
		if len(v.Values) == 0 {
			return json.Marshal("")
		}
		return json.Marshal(v.Values[0])
	default:
		values := v.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolVariant(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = SingleVariant(s)
		return nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err == nil {
		*v = MultiVariant(values...)
		return nil
	}
	return zerr.With(zerr.Wrap(ErrInvalidSpec, "unsupported variant value"), "value", string(data))
}
