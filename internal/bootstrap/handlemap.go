// Package bootstrap implements the Handle Map contract for hosts whose
// process-creation API accepts only opaque handle tokens rather than a
// numbered file-descriptor table (the spec's motivating example is
// Windows). A child on such a host cannot recover which inherited token
// is channel 3, 4, or 5 by descriptor number the way it can on a
// fork/exec host, so the parent instead serializes a small map and hands
// it to the child through an environment variable or a command-line
// flag.
//
// On the fork/exec hosts this module actually runs on, os/exec's
// ExtraFiles convention already gives the child numeric descriptors 3-5
// directly (see internal/hexstream.PipeSet.ConfigureCmd), so nothing in
// this package participates in a normal spawn. It exists so the wire
// format and its parser/serializer are exercised and available to a
// consumer running on a host that needs them.
package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvVar is the environment variable the parent sets and the child
// checks first.
const EnvVar = "__ARIA_FD_MAP"

// FlagPrefix is the command-line flag form, checked if the environment
// variable is absent. The flag and its value must be stripped from the
// visible argument vector before user code observes argv.
const FlagPrefix = "--aria-fd-map="

// minIndex and maxIndex bound the channels a Handle Map may carry;
// channels 0-2 travel through the host's standard three-slot mechanism
// instead.
const (
	minIndex = 3
	maxIndex = 5
)

// HandleMap holds the child-side tokens for channels 3, 4, and 5. A
// missing channel is represented by ok=false in its slot; the wire
// format never distinguishes "absent" from "malformed", both are
// dropped silently per the spec.
type HandleMap struct {
	tokens [maxIndex + 1]uint64
	valid  [maxIndex + 1]bool
}

// Set records the child-side token for a channel index (3, 4, or 5).
// Indices outside that range are ignored, matching the whitelist the
// spec requires the parent to build alongside the map.
func (m *HandleMap) Set(index int, token uint64) {
	if index < minIndex || index > maxIndex {
		return
	}
	m.tokens[index] = token
	m.valid[index] = true
}

// Get returns the token recorded for index and whether one was present.
func (m *HandleMap) Get(index int) (uint64, bool) {
	if index < minIndex || index > maxIndex {
		return 0, false
	}
	return m.tokens[index], m.valid[index]
}

// Empty reports whether the map carries no entries at all. An empty map
// is not an error; it means the child continues with only channels 0-2.
func (m *HandleMap) Empty() bool {
	for _, v := range m.valid {
		if v {
			return false
		}
	}
	return true
}

// Serialize renders the map as `idx:0xHEX;idx:0xHEX;...` in ascending
// index order, omitting absent entries.
func (m *HandleMap) Serialize() string {
	var parts []string
	for i := minIndex; i <= maxIndex; i++ {
		if !m.valid[i] {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d:0x%X", i, m.tokens[i]))
	}
	return strings.Join(parts, ";")
}

// ParseHandleMap parses the `entry(';'entry)*` grammar where
// `entry := index ':' '0x' hex+` and index is any integer (only 3-5 are
// retained; everything else is silently dropped as an unknown index,
// same as a malformed entry). An empty input string yields an empty,
// non-error HandleMap.
func ParseHandleMap(s string) *HandleMap {
	m := &HandleMap{}
	if s == "" {
		return m
	}

	for _, entry := range strings.Split(s, ";") {
		idx, tok, ok := parseEntry(entry)
		if !ok {
			continue
		}
		m.Set(idx, tok)
	}
	return m
}

func parseEntry(entry string) (index int, token uint64, ok bool) {
	colon := strings.IndexByte(entry, ':')
	if colon < 0 {
		return 0, 0, false
	}

	idxStr := entry[:colon]
	valStr := entry[colon+1:]

	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, 0, false
	}

	if !strings.HasPrefix(valStr, "0x") && !strings.HasPrefix(valStr, "0X") {
		return 0, 0, false
	}
	tok, err := strconv.ParseUint(valStr[2:], 16, 64)
	if err != nil {
		return 0, 0, false
	}

	return idx, tok, true
}

// FromEnv builds a HandleMap from the process's own __ARIA_FD_MAP
// environment variable. Returns an empty map (never nil) if the
// variable is unset.
func FromEnv(lookup func(string) (string, bool)) *HandleMap {
	if lookup == nil {
		return &HandleMap{}
	}
	v, ok := lookup(EnvVar)
	if !ok {
		return &HandleMap{}
	}
	return ParseHandleMap(v)
}

// ExtractFlag scans argv for a --aria-fd-map=<value> entry, returning
// the parsed map, whether it was found, and argv with that entry
// removed. The command-line form must never reach user code,
// so callers should always use the returned slice in place of the
// original argv once this has run.
func ExtractFlag(argv []string) (m *HandleMap, found bool, remaining []string) {
	remaining = make([]string, 0, len(argv))
	for _, arg := range argv {
		if strings.HasPrefix(arg, FlagPrefix) {
			value := strings.TrimPrefix(arg, FlagPrefix)
			m = ParseHandleMap(value)
			found = true
			continue
		}
		remaining = append(remaining, arg)
	}
	if m == nil {
		m = &HandleMap{}
	}
	return m, found, remaining
}

// Resolve implements the consumer-side lookup order: environment first,
// then command line. Returns the map (possibly empty) and the argument
// vector with any --aria-fd-map flag stripped.
func Resolve(lookup func(string) (string, bool), argv []string) (*HandleMap, []string) {
	envMap := FromEnv(lookup)
	if !envMap.Empty() {
		_, _, cleanArgv := ExtractFlag(argv)
		return envMap, cleanArgv
	}

	flagMap, found, cleanArgv := ExtractFlag(argv)
	if found {
		return flagMap, cleanArgv
	}

	return &HandleMap{}, argv
}
