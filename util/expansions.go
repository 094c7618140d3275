package util

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Expansions is a set of named values that can be substituted into strings
// using the ${name} syntax.
//
// The supported forms are:
//
//	${name}          the value of name, or the empty string
//	${name|default}  the value of name if it is defined, otherwise default
//	${name|*other}   the value of name if it is defined, otherwise the value of other
//	${name!|default} like ${name|default}, but an empty value counts as undefined
type Expansions map[string]string

// NewExpansions returns expansions initialized with a copy of the given map.
func NewExpansions(initMap map[string]string) *Expansions {
	exp := Expansions{}
	for k, v := range initMap {
		exp[k] = v
	}
	return &exp
}

// Put sets the value of a single expansion.
func (e *Expansions) Put(expansion string, value string) {
	(*e)[expansion] = value
}

// Get returns the value of the expansion, or the empty string if it is not
// defined.
func (e *Expansions) Get(expansion string) string {
	return (*e)[expansion]
}

// Exists reports whether the expansion is defined.
func (e *Expansions) Exists(expansion string) bool {
	_, ok := (*e)[expansion]
	return ok
}

// Update merges the given values in, overwriting existing keys.
func (e *Expansions) Update(newItems map[string]string) {
	for k, v := range newItems {
		(*e)[k] = v
	}
}

// UpdateFromYaml reads a flat YAML map of key/value pairs from the file and
// merges it in. It returns the keys that were read.
func (e *Expansions) UpdateFromYaml(filename string) ([]string, error) {
	filedata, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading expansions file '%s'", filename)
	}

	newExpansions := map[string]string{}
	if err = yaml.Unmarshal(filedata, &newExpansions); err != nil {
		return nil, errors.Wrapf(err, "parsing expansions file '%s'", filename)
	}

	keys := make([]string, 0, len(newExpansions))
	for k, v := range newExpansions {
		(*e)[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}

// Map returns a copy of the expansions as a plain map.
func (e *Expansions) Map() map[string]string {
	out := make(map[string]string, len(*e))
	for k, v := range *e {
		out[k] = v
	}
	return out
}

// ExpandString substitutes every ${...} reference in the input. It returns an
// error if a reference is not terminated or is otherwise malformed.
func (e *Expansions) ExpandString(toExpand string) (string, error) {
	var out strings.Builder
	rest := toExpand
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}")
		if end < 0 {
			return "", errors.Errorf("unterminated expansion in '%s'", toExpand)
		}
		token := rest[:end]
		if strings.TrimSpace(token) == "" || strings.Contains(token, "${") {
			return "", errors.Errorf("malformed expansion '${%s}' in '%s'", token, toExpand)
		}

		out.WriteString(e.resolve(token))
		rest = rest[end+1:]
	}
}

// ExpandStrings expands each string in the slice in place.
func (e *Expansions) ExpandStrings(in []string) error {
	for idx := range in {
		expanded, err := e.ExpandString(in[idx])
		if err != nil {
			return errors.WithStack(err)
		}
		in[idx] = expanded
	}
	return nil
}

func (e *Expansions) resolve(token string) string {
	name, defaultValue, hasDefault := strings.Cut(token, "|")
	emptyIsUndefined := strings.HasSuffix(name, "!")
	name = strings.TrimSuffix(name, "!")

	if val, ok := (*e)[name]; ok && !(emptyIsUndefined && val == "") {
		return val
	}
	if !hasDefault {
		return ""
	}
	if strings.HasPrefix(defaultValue, "*") {
		return e.Get(defaultValue[1:])
	}
	return defaultValue
}
