package hcl

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// sysenvContext returns an evaluation context exposing exactly the
// sysenv.NAME variables the attributes reference. Unset variables evaluate
// to the empty string.
func sysenvContext(attrs map[string]*hcl.Attribute) *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, attr := range attrs {
		for _, tr := range attr.Expr.Variables() {
			if tr.RootName() != "sysenv" || len(tr) < 2 {
				continue
			}
			if step, ok := tr[1].(hcl.TraverseAttr); ok {
				vars[step.Name] = cty.StringVal(os.Getenv(step.Name))
			}
		}
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"sysenv": cty.ObjectVal(vars)}}
}

// evalStrings evaluates an attribute that may be a string or a list of
// strings. Numbers and bools are accepted as their string form.
func evalStrings(attr *hcl.Attribute, ctx *hcl.EvalContext) ([]string, error) {
	val, diags := attr.Expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("%s: value is not known", attr.Name)
	}

	ty := val.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		var out []string
		for it := val.ElementIterator(); it.Next(); {
			_, el := it.Element()
			s, err := primitive(el)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", attr.Name, err)
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, err := primitive(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", attr.Name, err)
	}
	return []string{s}, nil
}

func primitive(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("expected a string or a list of strings, got %s", v.Type().FriendlyName())
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

// sortedNames returns the attribute names in source order, so errors are
// reported deterministically.
func sortedNames(attrs map[string]*hcl.Attribute) []string {
	names := make([]string, 0, len(attrs))
	for n := range attrs {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := attrs[names[i]].Range, attrs[names[j]].Range
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Start.Byte < b.Start.Byte
	})
	return names
}
