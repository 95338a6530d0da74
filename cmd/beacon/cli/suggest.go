// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestDistance is the largest edit distance still offered as a
// "did you mean" hint.
const maxSuggestDistance = 3

func suggestCommand(unknown string, commands []*Command) string {
	names := make([]string, len(commands))
	for i, command := range commands {
		names[i] = command.Name
	}
	return closest(unknown, names)
}

// suggestFlag returns a hint for the first flag in args that flagSet
// does not define, spelled the way it would be typed.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	name, found := firstUndefinedFlag(args, flagSet)
	if !found {
		return ""
	}
	var defined []string
	flagSet.VisitAll(func(f *pflag.Flag) { defined = append(defined, f.Name) })

	switch best := closest(name, defined); len(best) {
	case 0:
		return ""
	case 1:
		return "-" + best
	default:
		return "--" + best
	}
}

func firstUndefinedFlag(args []string, flagSet *pflag.FlagSet) (string, bool) {
	for _, arg := range args {
		if arg == "--" {
			return "", false
		}
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if flagSet.Lookup(name) != nil {
			continue
		}
		if len(name) == 1 && flagSet.ShorthandLookup(name) != nil {
			continue
		}
		return name, true
	}
	return "", false
}

// closest picks the candidate with the smallest edit distance to
// unknown; ties go to the earlier candidate.
func closest(unknown string, candidates []string) string {
	best, bestDistance := "", maxSuggestDistance+1
	for _, candidate := range candidates {
		distance := levenshtein(unknown, candidate)
		if distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

func levenshtein(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	// row[i] holds the distance between b[:i] and the prefix of a
	// processed so far.
	row := make([]int, len(b)+1)
	for i := range row {
		row[i] = i
	}
	for j := range len(a) {
		diagonal := row[0]
		row[0] = j + 1
		for i := 1; i <= len(b); i++ {
			substitution := diagonal
			if a[j] != b[i-1] {
				substitution++
			}
			diagonal = row[i]
			row[i] = min(row[i]+1, row[i-1]+1, substitution)
		}
	}
	return row[len(b)]
}
