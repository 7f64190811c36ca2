package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"sourcestep/interpreter-go/pkg/runtime"
)

// parseBindings turns name=value flags into host bindings. Values that
// parse as numbers or booleans keep that type; everything else is a
// string.
func parseBindings(specs []string) (runtime.Bindings, error) {
	out := runtime.Bindings{}
	for _, spec := range specs {
		name, raw, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("binding %q must look like name=value", spec)
		}
		out[name] = parseBindingValue(raw)
	}
	return out, nil
}

func parseBindingValue(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if raw == "undefined" {
		return nil
	}
	return raw
}

// withBuiltins adds the host functions every run gets.
func withBuiltins(bindings runtime.Bindings, stdout io.Writer) runtime.Bindings {
	if _, ok := bindings["print"]; !ok {
		bindings["print"] = func(args ...any) {
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = formatHostValue(arg)
			}
			fmt.Fprintln(stdout, strings.Join(parts, " "))
		}
	}
	return bindings
}

func formatHostValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "undefined"
	case float64:
		return runtime.FormatNumber(val)
	case runtime.Value:
		return runtime.Inspect(val)
	default:
		return fmt.Sprint(val)
	}
}

func bindingNames(bindings runtime.Bindings) []string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	return names
}
