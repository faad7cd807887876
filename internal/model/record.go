package model

import (
	"bytes"
	"encoding/json"
)

// Field is one named column of a Record. Present is false for absent values.
type Field struct {
	Name    string
	Value   string
	Present bool
}

// Record is an ordered set of fields. Field order is the owning schema's order.
type Record struct {
	fields []Field
}

// Batch is the ordered list of records produced from one document collection.
type Batch []Record

func NewRecord(fields []Field) Record {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return Record{fields: cp}
}

// Fields returns a copy of the record's fields in order.
func (r Record) Fields() []Field {
	cp := make([]Field, len(r.fields))
	copy(cp, r.fields)
	return cp
}

func (r Record) Len() int {
	return len(r.fields)
}

// Get returns the value of the named field and whether it is present.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, f.Present
		}
	}
	return "", false
}

// Values returns the field values in order, absent fields as "".
func (r Record) Values() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		if f.Present {
			out[i] = f.Value
		}
	}
	return out
}

// MarshalJSON writes the record as an object in field order, absent fields as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !f.Present {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
