// Package config implements the configuration surface of spec.md §6:
// named options with typed values, registered at a qualified name, with
// precedence explicit scope override > process flag > source default
// (spec.md §6 and §10.3). The option set governs pass selection,
// thresholds, and dump filters but never the phase graph topology.
package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind is the typed value an option holds.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindLong
	KindDouble
	KindString
)

// Value is a typed option value; exactly one field is meaningful,
// selected by Kind.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int32
	Long   int64
	Double float64
	Str    string
}

func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int32) Value     { return Value{Kind: KindInt, Int: i} }
func LongValue(i int64) Value    { return Value{Kind: KindLong, Long: i} }
func DoubleValue(f float64) Value { return Value{Kind: KindDouble, Double: f} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindLong:
		return strconv.FormatInt(v.Long, 10)
	case KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case KindString:
		return v.Str
	default:
		return "<invalid>"
	}
}

// parseAs converts raw text to a Value of kind, per the option's
// registered type.
func parseAs(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Value{}, fmt.Errorf("config: invalid bool %q: %w", raw, err)
		}
		return BoolValue(b), nil
	case KindInt:
		i, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("config: invalid int %q: %w", raw, err)
		}
		return IntValue(int32(i)), nil
	case KindLong:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("config: invalid long %q: %w", raw, err)
		}
		return LongValue(i), nil
	case KindDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, fmt.Errorf("config: invalid double %q: %w", raw, err)
		}
		return DoubleValue(f), nil
	case KindString:
		return StringValue(raw), nil
	default:
		return Value{}, fmt.Errorf("config: unknown kind %d", kind)
	}
}

// Spec registers one named option and its type/default.
type Spec struct {
	Name    string
	Kind    Kind
	Default Value
}

// Registry is the set of options a compilation recognizes.
type Registry struct {
	specs map[string]Spec
}

func NewRegistry() *Registry { return &Registry{specs: map[string]Spec{}} }

func (r *Registry) Register(s Spec) { r.specs[s.Name] = s }

// Override is one scope-qualified option assignment (from
// ParseOverrides or supplied programmatically), the highest-precedence
// source (spec.md §6).
type Override struct {
	ScopePath []string
	Name      string
	RawValue  string
}

// sourceDefaults is the shape of a YAML option-defaults document:
// a flat map from option name to its textual default value.
type sourceDefaults map[string]string

// LoadYAMLDefaults parses a YAML document of option-name -> value
// pairs (spec.md §10.3 "source defaults may also be loaded from a YAML
// document").
func LoadYAMLDefaults(doc []byte) (map[string]string, error) {
	var m sourceDefaults
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("config: parsing YAML defaults: %w", err)
	}
	return m, nil
}

// Config is an immutable snapshot of resolved option values, taken
// once at compilation start (spec.md §5 "option flags are snapshot at
// compilation start so mid-run changes do not affect in-flight work").
type Config struct {
	values map[string]Value
	scoped map[string]map[string]Value // scopePath-joined -> name -> Value
}

// Snapshot resolves every registered option's value following spec.md
// §6's precedence: an Override whose ScopePath matches the lookup
// scope wins over a process flag, which wins over a YAML/registered
// source default.
func Snapshot(reg *Registry, yamlDefaults map[string]string, processFlags map[string]string, overrides []Override) (*Config, error) {
	cfg := &Config{values: map[string]Value{}, scoped: map[string]map[string]Value{}}

	for name, spec := range reg.specs {
		v := spec.Default
		if raw, ok := yamlDefaults[name]; ok {
			parsed, err := parseAs(spec.Kind, raw)
			if err != nil {
				return nil, err
			}
			v = parsed
		}
		if raw, ok := processFlags[name]; ok {
			parsed, err := parseAs(spec.Kind, raw)
			if err != nil {
				return nil, err
			}
			v = parsed
		}
		cfg.values[name] = v
	}

	for _, ov := range overrides {
		spec, ok := reg.specs[ov.Name]
		if !ok {
			continue // unknown option name in an override; ignored rather than fatal
		}
		parsed, err := parseAs(spec.Kind, ov.RawValue)
		if err != nil {
			return nil, err
		}
		key := joinScope(ov.ScopePath)
		if cfg.scoped[key] == nil {
			cfg.scoped[key] = map[string]Value{}
		}
		cfg.scoped[key][ov.Name] = parsed
	}

	return cfg, nil
}

// Get resolves name's value as seen from scopePath: an override scoped
// to scopePath (or any of its ancestors) wins over the process-flag/
// source-default snapshot.
func (c *Config) Get(scopePath []string, name string) (Value, bool) {
	for end := len(scopePath); end >= 0; end-- {
		key := joinScope(scopePath[:end])
		if m, ok := c.scoped[key]; ok {
			if v, ok := m[name]; ok {
				return v, true
			}
		}
	}
	v, ok := c.values[name]
	return v, ok
}

func joinScope(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}
