package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

var _ pflag.Value = (*keyValueFlag)(nil)

// keyValueFlag collects repeated KEY=VALUE type parameter overrides. Keys are
// upper-cased to match [[NAME]] markers.
type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(*kv))
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected KEY=VALUE, got %q", value)
	}
	key := strings.ToUpper(strings.TrimSpace(parts[0]))
	if key == "" {
		return fmt.Errorf("parameter name is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = strings.TrimSpace(parts[1])
	return nil
}

func (kv *keyValueFlag) Type() string {
	return "KEY=VALUE"
}

// Map returns the collected pairs, or nil when none were given.
func (kv keyValueFlag) Map() map[string]string {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]string, len(kv))
	for key, value := range kv {
		out[key] = value
	}
	return out
}
