package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// FieldKind tells where a generic field was captured.
type FieldKind int16

const (
	FieldExtension FieldKind = iota + 1
	FieldILMD
	FieldSensor
	FieldSensorMetadata
	FieldSensorReport
	FieldCustom
)

var fieldKindNames = map[FieldKind]string{
	FieldExtension:      "extension",
	FieldILMD:           "ilmd",
	FieldSensor:         "sensor",
	FieldSensorMetadata: "sensorMetadata",
	FieldSensorReport:   "sensorReport",
	FieldCustom:         "custom",
}

func (k FieldKind) String() string {
	return fieldKindNames[k]
}

func (k FieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *FieldKind) UnmarshalText(b []byte) error {
	for kind, name := range fieldKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return errors.Errorf("unknown field kind: %q", string(b))
}

// Field is a generic extension value attached to an event.
//
// A Field with a ParentIndex is nested inside the field at that index.
// Several fields may share kind, namespace and name.
type Field struct {
	Index       int
	ParentIndex *int
	Kind        FieldKind
	Namespace   string
	Name        string
	Value       Value // nil for fields that only hold children
}

// Inner reports whether the field is nested inside another field.
func (f Field) Inner() bool {
	return f.ParentIndex != nil
}

// Value is a field payload: one of Text, Numeric or Date.
type Value interface {
	isValue()
}

type Text string

type Numeric float64

type Date time.Time

func (Text) isValue()    {}
func (Numeric) isValue() {}
func (Date) isValue()    {}

// Time returns the date as a time.Time.
func (d Date) Time() time.Time {
	return time.Time(d)
}

type fieldDoc struct {
	Index        int        `json:"index"`
	ParentIndex  *int       `json:"parentIndex,omitempty"`
	Kind         FieldKind  `json:"kind"`
	Namespace    string     `json:"namespace,omitempty"`
	Name         string     `json:"name"`
	TextValue    *string    `json:"textValue,omitempty"`
	NumericValue *float64   `json:"numericValue,omitempty"`
	DateValue    *time.Time `json:"dateValue,omitempty"`
}

func (f Field) MarshalJSON() ([]byte, error) {
	doc := fieldDoc{
		Index:       f.Index,
		ParentIndex: f.ParentIndex,
		Kind:        f.Kind,
		Namespace:   f.Namespace,
		Name:        f.Name,
	}

	switch v := f.Value.(type) {
	case Text:
		s := string(v)
		doc.TextValue = &s
	case Numeric:
		n := float64(v)
		doc.NumericValue = &n
	case Date:
		t := v.Time()
		doc.DateValue = &t
	}

	return json.Marshal(doc)
}

func (f *Field) UnmarshalJSON(b []byte) error {
	var doc fieldDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return errors.Wrapf(err, "failed to decode field")
	}

	*f = Field{
		Index:       doc.Index,
		ParentIndex: doc.ParentIndex,
		Kind:        doc.Kind,
		Namespace:   doc.Namespace,
		Name:        doc.Name,
	}

	switch {
	case doc.TextValue != nil:
		f.Value = Text(*doc.TextValue)
	case doc.NumericValue != nil:
		f.Value = Numeric(*doc.NumericValue)
	case doc.DateValue != nil:
		f.Value = Date(*doc.DateValue)
	}
	return nil
}
