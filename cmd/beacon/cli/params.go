// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagsFromParams creates a flag set bound to the tagged fields of
// params, which must be a pointer to a struct. Panics on invalid input
// since that is a programming error.
//
//	var params sosParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("sos", &params) },
//	    Run:   func(ctx context.Context, args []string) error { ... },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag for every field of *params tagged with
// flag:"name" or flag:"name,n" (n is a one-letter shorthand). desc:""
// is the help text and default:"" the default, parsed by field type.
// Embedded structs are bound recursively.
//
// Supported field types: string, bool, int, [time.Duration], []string.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStructFields(value.Elem(), flagSet)
}

// flagOption holds the flag, desc and default tags of one field.
type flagOption struct {
	name      string
	shorthand string
	usage     string
	fallback  string
}

func bindStructFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	for _, field := range reflect.VisibleFields(structValue.Type()) {
		// Promoted fields are reached through their embedded struct.
		if len(field.Index) != 1 {
			continue
		}
		fieldValue := structValue.Field(field.Index[0])
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStructFields(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}

		tag, ok := field.Tag.Lookup("flag")
		if !ok || tag == "" {
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("field %s: flag tag on unexported field", field.Name)
		}
		opt := flagOption{usage: field.Tag.Get("desc"), fallback: field.Tag.Get("default")}
		opt.name, opt.shorthand, _ = strings.Cut(tag, ",")
		if err := bindField(fieldValue, flagSet, opt); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func bindField(fieldValue reflect.Value, flagSet *pflag.FlagSet, opt flagOption) error {
	if !fieldValue.CanAddr() {
		return fmt.Errorf("--%s: field not addressable", opt.name)
	}
	var err error
	switch target := fieldValue.Addr().Interface().(type) {
	case *string:
		flagSet.StringVarP(target, opt.name, opt.shorthand, opt.fallback, opt.usage)
	case *bool:
		var value bool
		if value, err = parseDefault(opt, strconv.ParseBool); err == nil {
			flagSet.BoolVarP(target, opt.name, opt.shorthand, value, opt.usage)
		}
	case *int:
		var value int
		if value, err = parseDefault(opt, strconv.Atoi); err == nil {
			flagSet.IntVarP(target, opt.name, opt.shorthand, value, opt.usage)
		}
	case *time.Duration:
		var value time.Duration
		if value, err = parseDefault(opt, time.ParseDuration); err == nil {
			flagSet.DurationVarP(target, opt.name, opt.shorthand, value, opt.usage)
		}
	case *[]string:
		var value []string
		if opt.fallback != "" {
			value = strings.Split(opt.fallback, ",")
		}
		flagSet.StringSliceVarP(target, opt.name, opt.shorthand, value, opt.usage)
	default:
		err = fmt.Errorf("unsupported type %s for flag --%s", fieldValue.Type(), opt.name)
	}
	return err
}

// parseDefault parses the default tag, yielding the zero value when
// the tag is absent.
func parseDefault[T any](opt flagOption, parse func(string) (T, error)) (T, error) {
	var zero T
	if opt.fallback == "" {
		return zero, nil
	}
	value, err := parse(opt.fallback)
	if err != nil {
		return zero, fmt.Errorf("default for --%s: %w", opt.name, err)
	}
	return value, nil
}
