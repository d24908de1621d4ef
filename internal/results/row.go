// Package results post-processes executed query rows: filtering, search,
// typed multi-key sorting, random sampling and pagination.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata column suffixes. Columns ending in these are hidden from the
// default column set.
const (
	SuffixUID     = "-uid"
	SuffixDisplay = "-display"
	SuffixAction  = "-action"
)

// KeyUID is the column holding the returned node's uid. It is kept in rows
// but never displayed or searched.
const KeyUID = "uid"

// Row is one result: an ordered map of column name to value. Values are
// strings, numbers, time.Time or nil.
type Row struct {
	keys   []string
	values map[string]interface{}
}

// NewRow creates an empty row.
func NewRow() Row {
	return Row{values: make(map[string]interface{})}
}

// Set assigns a column, appending it if new.
func (r *Row) Set(key string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns a column value.
func (r Row) Get(key string) (interface{}, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns every column in insertion order.
func (r Row) Keys() []string {
	return append([]string(nil), r.keys...)
}

// VisibleKeys returns the displayable columns: everything except the
// returned node's uid and the metadata columns.
func (r Row) VisibleKeys() []string {
	var out []string
	for _, k := range r.keys {
		if k != KeyUID && !IsMetadata(k) {
			out = append(out, k)
		}
	}
	return out
}

// IsMetadata reports whether a column is a metadata column.
func IsMetadata(key string) bool {
	return strings.HasSuffix(key, SuffixUID) || strings.HasSuffix(key, SuffixDisplay) || strings.HasSuffix(key, SuffixAction)
}

// MarshalJSON writes the row as an object with columns in order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping the column order of the input.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected a JSON object")
	}
	*r = NewRow()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return err
		}
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
