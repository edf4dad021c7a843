package crawler

import "sort"

// Values accumulates data captured by callbacks during a Run or Check.
//
// Callbacks are only ever invoked from the polling goroutine, so a Values is
// not safe for concurrent use and needs no locking; read it after the call
// returns.
type Values struct {
	data  map[string][]string
	order []string
}

// NewValues returns an empty accumulator.
func NewValues() *Values {
	return &Values{data: make(map[string][]string)}
}

// Set stores v under key, replacing earlier values.
func (v *Values) Set(key, val string) {
	if _, ok := v.data[key]; !ok {
		v.order = append(v.order, key)
	}
	v.data[key] = []string{val}
}

// Append adds val to the values stored under key.
func (v *Values) Append(key, val string) {
	if _, ok := v.data[key]; !ok {
		v.order = append(v.order, key)
	}
	v.data[key] = append(v.data[key], val)
}

// Get returns the most recent value stored under key.
func (v *Values) Get(key string) (string, bool) {
	vals := v.data[key]
	if len(vals) == 0 {
		return "", false
	}
	return vals[len(vals)-1], true
}

// All returns a copy of every value stored under key, oldest first.
func (v *Values) All(key string) []string {
	vals := v.data[key]
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// Keys returns the keys in the order they were first stored.
func (v *Values) Keys() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Map returns a copy of the accumulated values.
func (v *Values) Map() map[string][]string {
	out := make(map[string][]string, len(v.data))
	for k := range v.data {
		out[k] = v.All(k)
	}
	return out
}

// SortedKeys returns the keys in lexical order.
func (v *Values) SortedKeys() []string {
	keys := v.Keys()
	sort.Strings(keys)
	return keys
}
