package library

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	hcljson "github.com/hashicorp/hcl/v2/json"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"gopkg.in/yaml.v3"
)

// DescriptorFiles are looked up in this order; the first one found is used.
var DescriptorFiles = []string{"library.json", "library.yaml", "library.yml"}

// Descriptor is the metadata a library may ship with.
type Descriptor struct {
	Path    string
	Name    string
	Version string

	Dependencies []Dependency
	// BuildFlags are the build.flags entries joined into one flag string.
	BuildFlags string
	IncludeDir string
	SrcDir     string
	Headers    []string
}

// ReadDescriptor loads the descriptor of the library at dir. It returns nil
// without error when the library has none.
func ReadDescriptor(dir string) (*Descriptor, error) {
	for _, name := range DescriptorFiles {
		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(name, ".json") {
			return ParseJSON(src, path)
		}
		return ParseYAML(src, path)
	}
	return nil, nil
}

// ParseJSON parses a library.json document.
func ParseJSON(src []byte, filename string) (*Descriptor, error) {
	f, diags := hcljson.Parse(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := f.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	values := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		values[name] = v
	}
	return fromValues(values, filename)
}

// ParseYAML parses a library.yaml document.
func ParseYAML(src []byte, filename string) (*Descriptor, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	values := make(map[string]cty.Value, len(raw))
	for k, v := range raw {
		cv, err := toCty(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", filename, k, err)
		}
		values[k] = cv
	}
	return fromValues(values, filename)
}

func toCty(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case uint64:
		return cty.NumberVal(new(big.Float).SetUint64(t)), nil
	case float64:
		return cty.NumberFloatVal(t), nil
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(t))
		for i, e := range t {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
	}
}

func fromValues(values map[string]cty.Value, filename string) (*Descriptor, error) {
	d := &Descriptor{Path: filename}
	var err error

	if d.Name, err = stringAttr(values, "name"); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%s: \"name\" is required", filename)
	}
	if d.Version, err = stringAttr(values, "version"); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if d.Version == "" {
		return nil, fmt.Errorf("%s: \"version\" is required", filename)
	}

	if d.Dependencies, err = dependencies(values["dependencies"]); err != nil {
		return nil, fmt.Errorf("%s: dependencies: %w", filename, err)
	}

	if d.Headers, err = stringList(values["headers"]); err != nil {
		return nil, fmt.Errorf("%s: headers: %w", filename, err)
	}

	if build, ok := values["build"]; ok && !build.IsNull() {
		if !build.Type().IsObjectType() && !build.Type().IsMapType() {
			return nil, fmt.Errorf("%s: build must be an object", filename)
		}
		b := build.AsValueMap()
		flags, err := stringList(b["flags"])
		if err != nil {
			return nil, fmt.Errorf("%s: build.flags: %w", filename, err)
		}
		d.BuildFlags = strings.Join(flags, " ")
		if d.IncludeDir, err = stringAttr(b, "includeDir"); err != nil {
			return nil, fmt.Errorf("%s: build: %w", filename, err)
		}
		if d.SrcDir, err = stringAttr(b, "srcDir"); err != nil {
			return nil, fmt.Errorf("%s: build: %w", filename, err)
		}
	}
	return d, nil
}

func stringAttr(values map[string]cty.Value, key string) (string, error) {
	v, ok := values[key]
	if !ok || v.IsNull() {
		return "", nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("%q must be a string", key)
	}
	return strings.TrimSpace(s.AsString()), nil
}

// stringList accepts a single string or a list of strings.
func stringList(v cty.Value) ([]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if ty == cty.String {
		return []string{v.AsString()}, nil
	}
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("want a string or a list of strings, got %s", ty.FriendlyName())
	}
	var out []string
	for _, e := range v.AsValueSlice() {
		s, err := convert.Convert(e, cty.String)
		if err != nil || s.IsNull() {
			return nil, fmt.Errorf("want a string or a list of strings")
		}
		out = append(out, s.AsString())
	}
	return out, nil
}

// dependencies accepts a list of lib_deps strings, a list of {name, version}
// objects, or an object mapping names to version constraints.
func dependencies(v cty.Value) ([]Dependency, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()

	if ty.IsObjectType() || ty.IsMapType() {
		m := v.AsValueMap()
		names := make([]string, 0, len(m))
		for n := range m {
			names = append(names, n)
		}
		sort.Strings(names)
		out := make([]Dependency, 0, len(names))
		for _, n := range names {
			version, err := convert.Convert(m[n], cty.String)
			if err != nil {
				return nil, fmt.Errorf("%s: version must be a string", n)
			}
			dep, err := newNamedDependency(n, version.AsString())
			if err != nil {
				return nil, err
			}
			out = append(out, dep)
		}
		return out, nil
	}

	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("want a list or an object, got %s", ty.FriendlyName())
	}
	var out []Dependency
	for i, e := range v.AsValueSlice() {
		switch {
		case e.Type() == cty.String:
			dep, err := ParseDependency(e.AsString())
			if err != nil {
				return nil, err
			}
			out = append(out, dep)
		case e.Type().IsObjectType() || e.Type().IsMapType():
			m := e.AsValueMap()
			name, err := stringAttr(m, "name")
			if err != nil || name == "" {
				return nil, fmt.Errorf("[%d]: \"name\" is required", i)
			}
			version, err := stringAttr(m, "version")
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			dep, err := newNamedDependency(name, version)
			if err != nil {
				return nil, err
			}
			out = append(out, dep)
		default:
			return nil, fmt.Errorf("[%d]: want a string or an object", i)
		}
	}
	return out, nil
}
