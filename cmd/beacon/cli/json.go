// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
)

// JSONOutput gives a params struct a --json flag when embedded. Scripts
// and the UI process read command results this way.
//
//	type checkParams struct {
//	    globalParams
//	    cli.JSONOutput
//	}
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"print the result as JSON"`
}

// EmitJSON prints result to stdout when --json was given and reports
// whether it did. Callers print text when it returns false:
//
//	if done, err := params.EmitJSON(result); done {
//	    return err
//	}
func (j JSONOutput) EmitJSON(result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, WriteJSON(os.Stdout, result)
}

// WriteJSON writes value as indented JSON followed by a newline. A nil
// slice is written as [] so consumers never see null for a list.
func WriteJSON(w io.Writer, value any) error {
	if v := reflect.ValueOf(value); v.Kind() == reflect.Slice && v.IsNil() {
		value = reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
