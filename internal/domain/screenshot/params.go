package screenshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Recognised parameter names.
const (
	ParamURL         = "url"
	ParamWidth       = "width"
	ParamHeight      = "height"
	ParamWaitUntil   = "wait_until"
	ParamCredentials = "credentials"
	ParamSelector    = "selector"
	ParamWaitFor     = "wait_for"
)

// Wait conditions accepted by wait_until.
const (
	WaitLoad             = "load"
	WaitDOMContentLoaded = "domcontentloaded"
	WaitNetworkIdle0     = "networkidle0"
	WaitNetworkIdle2     = "networkidle2"
)

var parameterNames = []string{
	ParamWidth, ParamHeight, ParamWaitUntil, ParamCredentials, ParamSelector, ParamWaitFor,
}

var waitUntilValues = map[string]bool{
	WaitLoad:             true,
	WaitDOMContentLoaded: true,
	WaitNetworkIdle0:     true,
	WaitNetworkIdle2:     true,
}

// IsRecognised reports whether name is one of the capture parameters.
func IsRecognised(name string) bool {
	for _, p := range parameterNames {
		if p == name {
			return true
		}
	}
	return false
}

// Param is a single raw key/value pair as it arrived from the transport.
type Param struct {
	Key   string
	Value any
}

// RawParameters keeps request parameters in arrival order. Values are
// strings, string lists, mappings or JSON scalars; nothing is validated.
type RawParameters []Param

// Get returns the value stored under key.
func (r RawParameters) Get(key string) (any, bool) {
	for _, p := range r {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (r RawParameters) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Blank reports whether key is absent or carries an empty value.
func (r RawParameters) Blank(key string) bool {
	v, ok := r.Get(key)
	return !ok || isBlank(v)
}

// Set replaces the value under key, or appends it when absent.
func (r *RawParameters) Set(key string, value any) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Param{Key: key, Value: value})
}

// Without returns a copy without key.
func (r RawParameters) Without(key string) RawParameters {
	out := make(RawParameters, 0, len(r))
	for _, p := range r {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return out
}

// Keys lists parameter names in arrival order.
func (r RawParameters) Keys() []string {
	keys := make([]string, len(r))
	for i, p := range r {
		keys[i] = p.Key
	}
	return keys
}

// Map flattens the parameters for logging and persistence.
func (r RawParameters) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, p := range r {
		m[p.Key] = p.Value
	}
	return m
}

// RawFromMap builds RawParameters from an unordered map, sorting keys for determinism.
func RawFromMap(m map[string]any) RawParameters {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(RawParameters, 0, len(keys))
	for _, k := range keys {
		out = append(out, Param{Key: k, Value: m[k]})
	}
	return out
}

// Credentials authenticate the browser against the target page.
type Credentials struct {
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	TokenInHeader string `json:"token_in_header,omitempty"`
}

// Params are validated capture parameters. Only keys that were present in
// the raw request and passed validation are marked present.
type Params struct {
	Width       int
	Height      int
	WaitUntil   []string
	Credentials *Credentials
	Selector    string
	WaitFor     string

	present map[string]bool
}

// Has reports whether the validated output carries key.
func (p Params) Has(key string) bool {
	return p.present[key]
}

// Keys lists the present keys in canonical order.
func (p Params) Keys() []string {
	var keys []string
	for _, name := range parameterNames {
		if p.present[name] {
			keys = append(keys, name)
		}
	}
	return keys
}

func (p *Params) mark(key string) {
	if p.present == nil {
		p.present = make(map[string]bool)
	}
	p.present[key] = true
}

// Options converts the validated parameters into generator options.
func (p Params) Options() Options {
	opts := Options{
		Selector: p.Selector,
		WaitFor:  p.WaitFor,
	}
	if p.Has(ParamWidth) {
		opts.Width = p.Width
	}
	if p.Has(ParamHeight) {
		opts.Height = p.Height
	}
	if p.Has(ParamWaitUntil) {
		opts.WaitUntil = append([]string(nil), p.WaitUntil...)
	}
	if p.Credentials != nil {
		c := *p.Credentials
		opts.Credentials = &c
	}
	return opts
}

// scalarString renders a scalar raw value as text. Lists yield their single
// element; anything else is formatted with %v.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case []string:
		if len(t) == 1 {
			return t[0], true
		}
		return "", false
	case []any:
		if len(t) == 1 {
			return scalarString(t[0])
		}
		return "", false
	case map[string]any, map[string]string:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

// isBlank mirrors a falsy check: absent, empty string, empty list, zero number.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case map[string]string:
		return len(t) == 0
	case json.Number:
		return t.String() == "0"
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case bool:
		return !t
	default:
		return false
	}
}
