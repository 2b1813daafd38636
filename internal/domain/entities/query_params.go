package entities

import (
	"net/url"
	"slices"
	"strings"
)

// QueryParams is an insertion-ordered set of URL parameters holding a single
// value per key. Re-setting an existing key keeps its original position so
// encoded output is stable for equal inputs.
type QueryParams struct {
	keys   []string
	values map[string]string
}

// NewQueryParams creates an empty parameter set
func NewQueryParams() *QueryParams {
	return &QueryParams{values: map[string]string{}}
}

// Set stores value under key
func (p *QueryParams) Set(key, value string) {
	if p.values == nil {
		p.values = map[string]string{}
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key
func (p *QueryParams) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Del removes key
func (p *QueryParams) Del(key string) {
	if p == nil {
		return
	}
	if _, exists := p.values[key]; !exists {
		return
	}
	delete(p.values, key)
	p.keys = slices.DeleteFunc(p.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order
func (p *QueryParams) Keys() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.keys)
}

// Len returns the number of keys
func (p *QueryParams) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone returns an independent copy
func (p *QueryParams) Clone() *QueryParams {
	c := NewQueryParams()
	if p == nil {
		return c
	}
	for _, k := range p.keys {
		c.Set(k, p.values[k])
	}
	return c
}

// Values converts to url.Values
func (p *QueryParams) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	for _, k := range p.keys {
		v.Set(k, p.values[k])
	}
	return v
}

// Encode renders the parameters as a UTF-8 percent-encoded query string without
// a leading '?', in insertion order.
func (p *QueryParams) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}

// QueryParamsFromMap builds parameters from a map, ordering keys alphabetically
func QueryParamsFromMap(m map[string]string) *QueryParams {
	p := NewQueryParams()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}
