// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Note: the pretty-printing approach here is derived (borrows) from:
// github.com/go-logr/logr's funcr formatter, the same lineage bee's own
// pkg/log documents itself as derived from.
package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
)

// MessageCategory selects which log call sites WithCaller annotates
// with a "caller" field.
type MessageCategory int

const (
	CategoryNone MessageCategory = iota
	CategoryDebug
	CategoryInfo
	CategoryWarning
	CategoryError
	CategoryAll
)

// fmtOptions controls how a formatter renders values and lines.
type fmtOptions struct {
	caller          MessageCategory
	logCallerFunc   bool
	logTimestamp    bool
	timestampLayout string
	maxLogDepth     int
	jsonOutput      bool
	callerDepth     int
}

const defaultMaxLogDepth = 16

// formatter renders key/value pairs to either a "logfmt"-ish plain text
// line or a single JSON object, depending on opts.jsonOutput.
type formatter struct {
	opts fmtOptions
}

func newFormatter(o fmtOptions) *formatter {
	if o.maxLogDepth <= 0 {
		o.maxLogDepth = defaultMaxLogDepth
	}
	return &formatter{opts: o}
}

// caller renders "file:line" for the call site outside this package,
// skipping callerDepth additional frames for wrapper helpers, followed
// by the calling function's name when logCallerFunc is set.
func (f *formatter) caller() string {
	pc, file, line, ok := runtime.Caller(3 + f.opts.callerDepth)
	if !ok {
		return "<unknown>"
	}
	if f.opts.logCallerFunc {
		if fn := runtime.FuncForPC(pc); fn != nil {
			return fmt.Sprintf("%s:%d %s", file, line, fn.Name())
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Marshaler lets a value control its own logged representation, taking
// precedence over encoding/json, fmt.Stringer, and error.
type Marshaler interface {
	MarshalLog() interface{}
}

// PseudoStruct renders an alternating key/value list as an inline
// object, without requiring callers to define a named struct type.
type PseudoStruct []interface{}

// sanitize repairs a key/value list for safe rendering: an odd trailing
// key gets a placeholder value, and non-string keys are stringified.
func (f *formatter) sanitize(kvList []interface{}) []interface{} {
	if len(kvList)%2 != 0 {
		kvList = append(kvList, "<no-value>")
	}
	for i := 0; i < len(kvList); i += 2 {
		if _, ok := kvList[i].(string); !ok {
			kvList[i] = fmt.Sprintf("<non-string-key: %v>", f.snippet(kvList[i]))
		}
	}
	return kvList
}

// snippet renders v compactly for use inside a non-string-key error
// placeholder, truncating long representations.
func (f *formatter) snippet(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	const maxLen = 16
	if len(b) > maxLen {
		return string(b[:maxLen])
	}
	return string(b)
}

// flatten sanitizes kvList and writes it as
// space-separated "key"=value pairs (or, in JSON mode, as comma-
// separated "key":value pairs with no enclosing braces). continuing
// indicates buf already holds content, so a separator precedes the
// first pair written here.
func (f *formatter) flatten(buf *bytes.Buffer, kvList []interface{}, asJSON, continuing bool) {
	kvList = f.sanitize(kvList)
	for i := 0; i < len(kvList); i += 2 {
		if continuing || i > 0 {
			if asJSON {
				buf.WriteByte(',')
			} else {
				buf.WriteByte(' ')
			}
		}
		k, _ := kvList[i].(string)
		v := kvList[i+1]
		if asJSON {
			buf.WriteString(strconv.Quote(k))
			buf.WriteByte(':')
			buf.WriteString(f.prettyWithFlags(v, 0, 0))
		} else {
			buf.WriteString(strconv.Quote(k))
			buf.WriteByte('=')
			buf.WriteString(f.prettyWithFlags(v, 0, 0))
		}
	}
}

// render combines builtins and args into one rendered line: a plain
// "key=value..." line, or a single JSON object, terminated by "\n".
func (f *formatter) render(builtins, args []interface{}) []byte {
	var buf bytes.Buffer
	if f.opts.jsonOutput {
		buf.WriteByte('{')
		f.flatten(&buf, append(append([]interface{}{}, builtins...), args...), true, false)
		buf.WriteByte('}')
	} else {
		f.flatten(&buf, append(append([]interface{}{}, builtins...), args...), false, false)
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// pretty renders a single value using this formatter's json-output mode.
func (f *formatter) pretty(value interface{}) string {
	return f.prettyWithFlags(value, 0, 0)
}

// prettyWithFlags renders value as a JSON-like literal, recursing into
// composite types up to opts.maxLogDepth and preferring, in order,
// Marshaler.MarshalLog, error.Error, fmt.Stringer.String, and finally
// encoding/json, mirroring the precedence funcr documents.
func (f *formatter) prettyWithFlags(value interface{}, flags, depth int) string {
	if depth > f.opts.maxLogDepth {
		return `"<max-depth-exceeded>"`
	}

	if value == nil {
		return "null"
	}

	if m, ok := value.(Marshaler); ok {
		return f.safeCall(func() string { return f.prettyWithFlags(m.MarshalLog(), flags, depth+1) })
	}
	if e, ok := value.(error); ok {
		return f.safeCall(func() string { return strconv.Quote(e.Error()) })
	}
	if s, ok := value.(fmt.Stringer); ok {
		return f.safeCall(func() string { return strconv.Quote(s.String()) })
	}

	if ps, ok := value.(PseudoStruct); ok {
		var buf bytes.Buffer
		buf.WriteByte('{')
		f.flatten(&buf, append([]interface{}{}, ps...), true, false)
		buf.WriteByte('}')
		return buf.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		return strconv.Quote(fmt.Sprintf("(%v+%vi)", real(c), imag(c)))
	case reflect.Ptr:
		if rv.IsNil() {
			return "null"
		}
		return f.prettyWithFlags(rv.Elem().Interface(), flags, depth)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]"
		}
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(f.prettyWithFlags(rv.Index(i).Interface(), flags, depth+1))
		}
		buf.WriteByte(']')
		return buf.String()
	case reflect.Map:
		if rv.IsNil() {
			return "{}"
		}
		return f.prettyMap(rv, depth)
	case reflect.Struct:
		return f.prettyStruct(rv, depth)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return strconv.Quote(fmt.Sprintf("<unrepresentable: %v>", err))
		}
		return string(b)
	}
}

func (f *formatter) prettyMap(rv reflect.Value, depth int) string {
	keys := rv.MapKeys()
	type kv struct{ k, v string }
	pairs := make([]kv, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, kv{f.mapKeyString(k.Interface(), depth), f.prettyWithFlags(rv.MapIndex(k).Interface(), 0, depth+1)})
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(p.k)
		buf.WriteByte(':')
		buf.WriteString(p.v)
	}
	buf.WriteByte('}')
	return buf.String()
}

// mapKeyString renders a map key as a JSON string, whatever its
// underlying type: composite keys are marshaled and quoted.
func (f *formatter) mapKeyString(key interface{}, depth int) string {
	if s, ok := key.(string); ok {
		return strconv.Quote(s)
	}
	if tm, ok := key.(encodingTextMarshaler); ok {
		b, err := tm.MarshalText()
		if err != nil {
			return strconv.Quote(fmt.Sprintf("<error-MarshalText: %v>", err))
		}
		return strconv.Quote(string(b))
	}
	rendered := f.prettyWithFlags(key, 0, depth+1)
	var s string
	if json.Unmarshal([]byte(rendered), &s) == nil {
		return strconv.Quote(s)
	}
	return strconv.Quote(rendered)
}

type encodingTextMarshaler interface {
	MarshalText() ([]byte, error)
}

func (f *formatter) prettyStruct(rv reflect.Value, depth int) string {
	rt := rv.Type()
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}
		name, omitempty, skip := jsonFieldName(field)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if omitempty && isEmptyValue(fv) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(name))
		buf.WriteByte(':')
		buf.WriteString(f.prettyWithFlags(fv.Interface(), 0, depth+1))
	}
	buf.WriteByte('}')
	return buf.String()
}

// jsonFieldName applies the same subset of encoding/json's `json:"..."`
// tag semantics the corpus's structs use: rename, "-" to skip, and
// omitempty.
func jsonFieldName(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	rest := tag
	if idx := indexByte(tag, ','); idx >= 0 {
		rest = tag[:idx]
		if contains(tag[idx+1:], "omitempty") {
			omitempty = true
		}
	}
	if rest == "-" {
		name = "-"
	} else if rest != "" {
		name = rest
	}
	return name, omitempty, false
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String, reflect.Array:
		return v.Len() == 0
	case reflect.Map, reflect.Slice:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Complex64, reflect.Complex128:
		return v.Complex() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

// safeCall recovers a panicking Marshaler/Stringer/error implementation,
// rendering a diagnostic string instead of propagating the panic into
// the caller's logging path.
func (f *formatter) safeCall(fn func() string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = strconv.Quote(fmt.Sprintf("<panic: %v>", r))
		}
	}()
	return fn()
}
