package devices

import (
	"strconv"
	"strings"
)

const (
	BrandKey      = "Brand"
	ModelNameKey  = "Model Name"
	ModelImageKey = "Model Image"
)

// the attributes every non-empty record starts with, in this order
var MandatoryKeys = []string{BrandKey, ModelNameKey, ModelImageKey}

// Record is one device's attributes, keys are kept in insertion order
// so that newly discovered columns show up in the order they appear
// on the catalog page.
type Record struct {
	keys   []string
	values map[string]string
}

func NewRecord() Record {
	return Record{values: map[string]string{}}
}

// Set stores value under key. when key is already taken the value goes to
// the first free "<key>_N" (N starting at 1), existing values are never
// overwritten. it returns the key that was actually used.
func (r *Record) Set(key, value string) string {
	if r.values == nil {
		r.values = map[string]string{}
	}
	stored := key
	for i := 1; r.Has(stored); i++ {
		stored = key + "_" + strconv.Itoa(i)
	}
	r.keys = append(r.keys, stored)
	r.values[stored] = value
	return stored
}

func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns a copy of the record's keys in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Record) Len() int {
	return len(r.keys)
}

func (r Record) Empty() bool {
	return len(r.keys) == 0
}

func (r Record) Name() string {
	return r.values[ModelNameKey]
}

// Row lays the record out along columns, attributes the record doesn't
// have become "".
func (r Record) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = r.values[c]
	}
	return row
}

func (r Record) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range r.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(k))
		sb.WriteString(": ")
		sb.WriteString(strconv.Quote(r.values[k]))
	}
	sb.WriteString("}")
	return sb.String()
}
