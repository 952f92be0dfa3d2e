package main

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// envVarKeyPattern validates settings keys. Keys must start with a letter or
// underscore and contain only alphanumerics and underscores, preventing
// injection through malformed names.
var envVarKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrInvalidEnvVarKey is returned when a key fails validation.
var ErrInvalidEnvVarKey = fmt.Errorf("invalid environment variable key")

// EnvVar is a single settings entry with a sensitivity marker.
//
// Sensitive values (passwords, API credentials, the application secret) are
// rendered into the env file but never into logs or status output; Redacted
// is the only formatting path diagnostics may use.
type EnvVar struct {
	Key       string
	Value     string
	Sensitive bool
}

// String renders KEY=VALUE for the env file. Do not use for logging.
func (e EnvVar) String() string {
	return e.Key + "=" + e.Value
}

// Redacted renders KEY=**** for sensitive entries and KEY=VALUE otherwise.
func (e EnvVar) Redacted() string {
	if e.Sensitive {
		return e.Key + "=****"
	}
	return e.String()
}

// Validate checks the key shape and that the value has no newlines, which
// would corrupt the rendered file.
func (e EnvVar) Validate() error {
	if !envVarKeyPattern.MatchString(e.Key) {
		return fmt.Errorf("%w: %q", ErrInvalidEnvVarKey, e.Key)
	}
	if strings.ContainsAny(e.Value, "\n\r") {
		return fmt.Errorf("value for %s contains line breaks", e.Key)
	}
	return nil
}

// EnvVars is an ordered, validated collection of settings entries used to
// render the persisted env file.
type EnvVars struct {
	vars []EnvVar
	idx  map[string]int
}

// NewEnvVars creates a collection from the given entries, validating each.
func NewEnvVars(vars ...EnvVar) (*EnvVars, error) {
	e := &EnvVars{idx: make(map[string]int)}
	for _, v := range vars {
		if err := e.add(v); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// EmptyEnvVars creates an empty collection.
func EmptyEnvVars() *EnvVars {
	return &EnvVars{idx: make(map[string]int)}
}

// Add appends or replaces an entry after validation.
func (e *EnvVars) Add(key, value string, sensitive bool) error {
	return e.add(EnvVar{Key: key, Value: value, Sensitive: sensitive})
}

// MustAdd is Add that panics on validation failure; for literal keys.
func (e *EnvVars) MustAdd(key, value string, sensitive bool) {
	if err := e.Add(key, value, sensitive); err != nil {
		panic(err)
	}
}

func (e *EnvVars) add(v EnvVar) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if i, ok := e.idx[v.Key]; ok {
		e.vars[i] = v
		return nil
	}
	e.idx[v.Key] = len(e.vars)
	e.vars = append(e.vars, v)
	return nil
}

// Get returns the value for a key, or empty string when absent.
func (e *EnvVars) Get(key string) string {
	if i, ok := e.idx[key]; ok {
		return e.vars[i].Value
	}
	return ""
}

// Has reports whether a key is present.
func (e *EnvVars) Has(key string) bool {
	_, ok := e.idx[key]
	return ok
}

// Len returns the number of entries.
func (e *EnvVars) Len() int {
	return len(e.vars)
}

// Entries returns a copy of the entries in insertion order.
func (e *EnvVars) Entries() []EnvVar {
	out := make([]EnvVar, len(e.vars))
	copy(out, e.vars)
	return out
}

// RedactedSlice returns all entries as redacted KEY=VALUE strings, sorted,
// safe for logging and status output.
func (e *EnvVars) RedactedSlice() []string {
	out := make([]string, 0, len(e.vars))
	for _, v := range e.vars {
		out = append(out, v.Redacted())
	}
	sort.Strings(out)
	return out
}
