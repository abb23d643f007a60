// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Keys lists every dotted key in declaration order.
func Keys() []string {
	var keys []string
	walk(reflect.TypeOf(Config{}), "", func(key string, _ []int) {
		keys = append(keys, key)
	})
	return keys
}

// Get returns the value at a dotted key such as "api.base_url".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses value according to the field type and stores it. The result
// is not validated; callers run Validate before saving.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		field.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: expected an integer, got %q", key, value)
		}
		field.SetInt(int64(n))
	default:
		return fmt.Errorf("%s: unsupported type %s", key, field.Kind())
	}
	return nil
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	var index []int
	walk(reflect.TypeOf(*c), "", func(k string, idx []int) {
		if k == key {
			index = idx
		}
	})
	if index == nil {
		return reflect.Value{}, fmt.Errorf("unknown config key: %s", key)
	}
	return reflect.ValueOf(c).Elem().FieldByIndex(index), nil
}

// walk visits leaf fields, naming them by their toml tags.
func walk(t reflect.Type, prefix string, fn func(key string, index []int)) {
	var visit func(t reflect.Type, prefix string, index []int)
	visit = func(t reflect.Type, prefix string, index []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			key := name
			if prefix != "" {
				key = prefix + "." + name
			}
			idx := append(append([]int(nil), index...), i)
			if f.Type.Kind() == reflect.Struct {
				visit(f.Type, key, idx)
				continue
			}
			fn(key, idx)
		}
	}
	visit(t, prefix, nil)
}
