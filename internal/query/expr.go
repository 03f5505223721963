package query

import (
	"fmt"
	"strings"
	"time"
)

// Op is the operation of an Expr node.
type Op int

const (
	// Comparison operators, Values holds a single operand
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte

	OpIn      // Attr is one of Values
	OpLike    // Attr matches one of the glob patterns in Values
	OpNotNull // Attr is present

	OpAny          // some element of Set satisfies all Children
	OpWithin       // Attr is one of Values or a descendant of one in the Vocab hierarchy
	OpHasAttribute // masterdata record of Vocab referenced by Attr has attribute Name, optionally with a value in Values
)

var opNames = map[Op]string{
	OpEq:           "=",
	OpGt:           ">",
	OpGte:          ">=",
	OpLt:           "<",
	OpLte:          "<=",
	OpIn:           "in",
	OpLike:         "like",
	OpNotNull:      "notnull",
	OpAny:          "any",
	OpWithin:       "within",
	OpHasAttribute: "hasattr",
}

func (op Op) String() string {
	return opNames[op]
}

// Set names a sub-collection of the event aggregate.
type Set string

const (
	SetEpcs                   Set = "epcs"
	SetSources                Set = "sources"
	SetDestinations           Set = "destinations"
	SetTransactions           Set = "bizTransactions"
	SetPersistentDispositions Set = "persistentDispositions"
	SetSensorElements         Set = "sensorElements"
	SetReports                Set = "sensorReports"
	SetFields                 Set = "fields"
	SetCorrectiveIDs          Set = "correctiveEventIDs"
)

// Attr names an attribute of the event, or of a set element inside OpAny.
type Attr string

// Event attributes.
const (
	AttrEventType        Attr = "eventType"
	AttrEventTime        Attr = "eventTime"
	AttrRecordTime       Attr = "recordTime"
	AttrAction           Attr = "action"
	AttrBizLocation      Attr = "bizLocation"
	AttrBizStep          Attr = "bizStep"
	AttrDisposition      Attr = "disposition"
	AttrEventID          Attr = "eventID"
	AttrTransformationID Attr = "transformationID"
	AttrReadPoint        Attr = "readPoint"
	AttrUserID           Attr = "userID"
	AttrDeclarationTime  Attr = "declarationTime"
	AttrErrorReason      Attr = "errorReason"
	AttrRequestID        Attr = "requestID"
	AttrCaptureID        Attr = "captureID"
)

// Set element attributes.
const (
	AttrType                 Attr = "type"
	AttrID                   Attr = "id"
	AttrQuantity             Attr = "quantity"
	AttrStartTime            Attr = "startTime"
	AttrEndTime              Attr = "endTime"
	AttrBizRules             Attr = "bizRules"
	AttrDeviceID             Attr = "deviceID"
	AttrDataProcessingMethod Attr = "dataProcessingMethod"
	AttrMicroorganism        Attr = "microorganism"
	AttrChemicalSubstance    Attr = "chemicalSubstance"
	AttrStringValue          Attr = "stringValue"
	AttrBooleanValue         Attr = "booleanValue"
	AttrHexBinaryValue       Attr = "hexBinaryValue"
	AttrURIValue             Attr = "uriValue"
	AttrUnit                 Attr = "uom"
	AttrValue                Attr = "value"
	AttrMinValue             Attr = "minValue"
	AttrMaxValue             Attr = "maxValue"
	AttrMeanValue            Attr = "meanValue"
	AttrSDev                 Attr = "sDev"
	AttrPercRank             Attr = "percRank"
	AttrPercValue            Attr = "percValue"
	AttrKind                 Attr = "kind"
	AttrNamespace            Attr = "namespace"
	AttrName                 Attr = "name"
	AttrInner                Attr = "inner"
	AttrText                 Attr = "textValue"
	AttrNumeric              Attr = "numericValue"
	AttrDate                 Attr = "dateValue"
)

// Expr is a storage-agnostic boolean predicate over an event.
// Storage layers translate it; see Collection.
type Expr struct {
	Op       Op
	Attr     Attr
	Set      Set
	Vocab    string
	Name     string
	Values   []any
	Children []Expr
}

func Eq(attr Attr, value any) Expr {
	return Cmp(OpEq, attr, value)
}

// Cmp compares attr against value with one of the comparison operators.
func Cmp(op Op, attr Attr, value any) Expr {
	return Expr{Op: op, Attr: attr, Values: []any{value}}
}

func In(attr Attr, values ...any) Expr {
	return Expr{Op: OpIn, Attr: attr, Values: values}
}

// Like matches attr against glob patterns where only '*' is special.
func Like(attr Attr, patterns ...string) Expr {
	return Expr{Op: OpLike, Attr: attr, Values: anys(patterns)}
}

func NotNull(attr Attr) Expr {
	return Expr{Op: OpNotNull, Attr: attr}
}

// Any holds when some element of set satisfies every child.
func Any(set Set, children ...Expr) Expr {
	return Expr{Op: OpAny, Set: set, Children: children}
}

func Within(attr Attr, vocab string, roots []string) Expr {
	return Expr{Op: OpWithin, Attr: attr, Vocab: vocab, Values: anys(roots)}
}

func HasAttribute(attr Attr, vocab, name string, values []string) Expr {
	return Expr{Op: OpHasAttribute, Attr: attr, Vocab: vocab, Name: name, Values: anys(values)}
}

// String renders the expression for diagnostics.
func (e Expr) String() string {
	switch e.Op {
	case OpAny:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("any %s[%s]", e.Set, strings.Join(parts, ", "))
	case OpNotNull:
		return fmt.Sprintf("%s notnull", e.Attr)
	case OpWithin:
		return fmt.Sprintf("%s within %s%v", e.Attr, e.Vocab, render(e.Values))
	case OpHasAttribute:
		return fmt.Sprintf("%s hasattr %s %s%v", e.Attr, e.Vocab, e.Name, render(e.Values))
	case OpIn, OpLike:
		return fmt.Sprintf("%s %s %v", e.Attr, e.Op, render(e.Values))
	}
	return fmt.Sprintf("%s %s %s", e.Attr, e.Op, render(e.Values)[0])
}

func render(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			out[i] = t.Format(time.RFC3339Nano)
			continue
		}
		out[i] = fmt.Sprintf("%v", v)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func anys[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
