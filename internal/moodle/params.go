package moodle

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
)

// Params are the arguments of one web-service function. Values may be
// scalars, maps or slices nested to any depth.
type Params map[string]any

// Encode flattens p into Moodle's bracketed form encoding:
//
//	{"user": {"username": "jdoe"}}        -> user[username]=jdoe
//	{"values": []string{"a", "b"}}        -> values[0]=a&values[1]=b
//	{"criteria": []Params{{"key": "id"}}} -> criteria[0][key]=id
//
// nil values and empty collections produce no fields; booleans become 1/0.
func (p Params) Encode() url.Values {
	out := url.Values{}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		encodeValue(out, k, reflect.ValueOf(p[k]))
	}
	return out
}

func encodeValue(out url.Values, key string, rv reflect.Value) {
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return
	}

	switch rv.Kind() {
	case reflect.Map:
		keys := rv.MapKeys()
		names := make([]string, len(keys))
		byName := make(map[string]reflect.Value, len(keys))
		for i, k := range keys {
			names[i] = fmt.Sprint(k.Interface())
			byName[names[i]] = rv.MapIndex(k)
		}
		sort.Strings(names)
		for _, n := range names {
			encodeValue(out, key+"["+n+"]", byName[n])
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			encodeValue(out, fmt.Sprintf("%s[%d]", key, i), rv.Index(i))
		}
	case reflect.Bool:
		if rv.Bool() {
			out.Add(key, "1")
		} else {
			out.Add(key, "0")
		}
	default:
		out.Add(key, fmt.Sprint(rv.Interface()))
	}
}
