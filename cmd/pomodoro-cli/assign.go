package main

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"pomodoro/internal/settings"
)

type settingField struct {
	name string // json key understood by the daemon
	kind reflect.Kind
}

// settingFields indexes the settings fields by both their json and yaml names.
func settingFields() map[string]settingField {
	fields := make(map[string]settingField)
	t := reflect.TypeOf(settings.Settings{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		field := settingField{name: name, kind: f.Type.Kind()}
		fields[strings.ToLower(name)] = field
		if alias := strings.Split(f.Tag.Get("yaml"), ",")[0]; alias != "" {
			fields[alias] = field
		}
	}
	return fields
}

// parseAssignments turns key=value arguments into apply_settings args.
// Keys are case insensitive and may use either camelCase or snake_case.
func parseAssignments(args []string) (map[string]interface{}, error) {
	fields := settingFields()
	out := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		field, known := fields[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			return nil, fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(knownSettings(fields), ", "))
		}
		raw = strings.TrimSpace(raw)

		var (
			value interface{}
			err   error
		)
		switch field.kind {
		case reflect.Int:
			value, err = cast.ToIntE(raw)
		case reflect.Bool:
			value, err = cast.ToBoolE(raw)
		default:
			value = raw
		}
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", field.name, err)
		}
		out[field.name] = value
	}
	return out, nil
}

func knownSettings(fields map[string]settingField) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range fields {
		if !seen[f.name] {
			seen[f.name] = true
			names = append(names, f.name)
		}
	}
	sort.Strings(names)
	return names
}
