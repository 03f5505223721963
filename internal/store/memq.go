package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/PratikDhanave/epcis-query-service/internal/masterdata"
	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

// record exposes the attributes of an event or of one of its elements.
// The boolean is false when the attribute is absent.
type record func(attr query.Attr) (any, bool)

type predicate func(ev *models.Event) bool

// memQuery evaluates a plan over a slice of events. Like sqlQuery, the
// first translation error sticks.
type memQuery struct {
	events   []models.Event
	resolver masterdata.Resolver
	err      error
}

func newMemQuery(events []models.Event, resolver masterdata.Resolver) *memQuery {
	return &memQuery{events: events, resolver: resolver}
}

func (q *memQuery) Where(e query.Expr) query.Collection {
	if q.err != nil {
		return q
	}
	match, err := q.compile(e)
	if err != nil {
		q.err = err
		return q
	}

	kept := make([]models.Event, 0, len(q.events))
	for i := range q.events {
		if match(&q.events[i]) {
			kept = append(kept, q.events[i])
		}
	}
	q.events = kept
	return q
}

func (q *memQuery) OrderBy(o query.Order) query.Collection {
	var at func(ev *models.Event) time.Time
	switch o.Attr {
	case query.AttrEventTime:
		at = func(ev *models.Event) time.Time { return ev.EventTime }
	case query.AttrRecordTime:
		at = func(ev *models.Event) time.Time { return requestOf(ev).RecordTime }
	default:
		q.err = errors.Errorf("cannot order by %q", o.Attr)
		return q
	}

	sort.SliceStable(q.events, func(i, j int) bool {
		a, b := at(&q.events[i]), at(&q.events[j])
		if o.Ascending {
			return a.Before(b)
		}
		return a.After(b)
	})
	return q
}

func (q *memQuery) Skip(n int) query.Collection {
	if n >= len(q.events) {
		q.events = nil
	} else {
		q.events = q.events[n:]
	}
	return q
}

func (q *memQuery) Take(n int) query.Collection {
	if n < len(q.events) {
		q.events = q.events[:n]
	}
	return q
}

func (q *memQuery) result() ([]models.Event, error) {
	if q.err != nil {
		return nil, q.err
	}
	out := make([]models.Event, len(q.events))
	copy(out, q.events)
	return out, nil
}

func (q *memQuery) compile(e query.Expr) (predicate, error) {
	switch e.Op {
	case query.OpAny:
		elems, ok := elementSets[e.Set]
		if !ok {
			return nil, errors.Errorf("unknown element set %q", e.Set)
		}
		tests := make([]func(record) bool, len(e.Children))
		for i, c := range e.Children {
			t, err := q.test(c)
			if err != nil {
				return nil, err
			}
			tests[i] = t
		}
		return func(ev *models.Event) bool {
			for _, r := range elems(ev) {
				if all(tests, r) {
					return true
				}
			}
			return false
		}, nil

	}

	t, err := q.test(e)
	if err != nil {
		return nil, err
	}
	return func(ev *models.Event) bool {
		return t(eventRecord(ev))
	}, nil
}

// test compiles an expression over a single record: the event itself, or
// one element of a set inside OpAny.
func (q *memQuery) test(e query.Expr) (func(record) bool, error) {
	switch e.Op {
	case query.OpEq, query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		if len(e.Values) != 1 {
			return nil, errors.Errorf("%s needs one operand", e.Op)
		}
		want := normalize(e.Values[0])
		op := e.Op
		return func(r record) bool {
			v, ok := r(e.Attr)
			if !ok {
				return false
			}
			c, ok := compare(normalize(v), want)
			if !ok {
				return false
			}
			switch op {
			case query.OpEq:
				return c == 0
			case query.OpGt:
				return c > 0
			case query.OpGte:
				return c >= 0
			case query.OpLt:
				return c < 0
			}
			return c <= 0
		}, nil

	case query.OpIn:
		wants := make([]any, len(e.Values))
		for i, v := range e.Values {
			wants[i] = normalize(v)
		}
		return func(r record) bool {
			v, ok := r(e.Attr)
			if !ok {
				return false
			}
			v = normalize(v)
			for _, w := range wants {
				if c, ok := compare(v, w); ok && c == 0 {
					return true
				}
			}
			return false
		}, nil

	case query.OpLike:
		res := make([]*regexp.Regexp, len(e.Values))
		for i, v := range e.Values {
			res[i] = globRegexp(fmt.Sprint(v))
		}
		return func(r record) bool {
			v, ok := r(e.Attr)
			if !ok {
				return false
			}
			s, ok := v.(string)
			if !ok {
				return false
			}
			for _, re := range res {
				if re.MatchString(s) {
					return true
				}
			}
			return false
		}, nil

	case query.OpNotNull:
		return func(r record) bool {
			_, ok := r(e.Attr)
			return ok
		}, nil

	case query.OpWithin:
		if q.resolver == nil {
			return nil, errors.New("hierarchy filter without a masterdata resolver")
		}
		roots := make([]string, len(e.Values))
		for i, v := range e.Values {
			roots[i] = fmt.Sprint(v)
		}
		return func(r record) bool {
			id, ok := stringAttr(r, e.Attr)
			return ok && q.resolver.Within(e.Vocab, id, roots)
		}, nil

	case query.OpHasAttribute:
		if q.resolver == nil {
			return nil, errors.New("masterdata filter without a masterdata resolver")
		}
		values := make(map[string]struct{}, len(e.Values))
		for _, v := range e.Values {
			values[fmt.Sprint(v)] = struct{}{}
		}
		return func(r record) bool {
			id, ok := stringAttr(r, e.Attr)
			if !ok {
				return false
			}
			md, ok := q.resolver.Lookup(e.Vocab, id)
			if !ok {
				return false
			}
			for _, a := range md.Attribute(e.Name) {
				if len(values) == 0 {
					return true
				}
				if _, ok := values[a.Value]; ok {
					return true
				}
			}
			return false
		}, nil

	case query.OpAny:
		return nil, errors.Errorf("nested element filter on %s", e.Set)
	}

	return nil, errors.Errorf("unsupported operator %q", e.Op)
}

func all(tests []func(record) bool, r record) bool {
	for _, t := range tests {
		if !t(r) {
			return false
		}
	}
	return true
}

func stringAttr(r record, attr query.Attr) (string, bool) {
	v, ok := r(attr)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func globRegexp(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// normalize folds enums and integers to int64 and field values to their
// plain Go types so compare only deals with a handful of kinds.
func normalize(v any) any {
	switch v := v.(type) {
	case models.EventType:
		return int64(v)
	case models.Action:
		return int64(v)
	case models.EpcType:
		return int64(v)
	case models.DispositionType:
		return int64(v)
	case models.FieldKind:
		return int64(v)
	case int:
		return int64(v)
	case models.Text:
		return string(v)
	case models.Numeric:
		return float64(v)
	case models.Date:
		return v.Time()
	}
	return v
}

// compare orders a against b. ok is false when the kinds differ or have
// no order.
func compare(a, b any) (c int, ok bool) {
	switch a := a.(type) {
	case string:
		b, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(a, b), true
	case float64:
		b, ok := b.(float64)
		if !ok {
			return 0, false
		}
		return cmpOrdered(a, b), true
	case int64:
		b, ok := b.(int64)
		if !ok {
			return 0, false
		}
		return cmpOrdered(a, b), true
	case time.Time:
		b, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return a.Compare(b), true
	case bool:
		b, ok := b.(bool)
		if !ok || a != b {
			return 1, ok
		}
		return 0, true
	}
	return 0, false
}

func cmpOrdered[T float64 | int64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func requestOf(ev *models.Event) *models.Request {
	if ev.Request == nil {
		return &models.Request{}
	}
	return ev.Request
}

func eventRecord(ev *models.Event) record {
	return func(attr query.Attr) (any, bool) {
		switch attr {
		case query.AttrEventType:
			return ev.Type, true
		case query.AttrEventTime:
			return ev.EventTime, true
		case query.AttrRecordTime:
			return requestOf(ev).RecordTime, ev.Request != nil
		case query.AttrAction:
			if ev.Action == nil || *ev.Action == 0 {
				return nil, false
			}
			return *ev.Action, true
		case query.AttrBizLocation:
			return present(ev.BusinessLocation)
		case query.AttrBizStep:
			return present(ev.BusinessStep)
		case query.AttrDisposition:
			return present(ev.Disposition)
		case query.AttrEventID:
			return present(ev.EventID)
		case query.AttrTransformationID:
			return present(ev.TransformationID)
		case query.AttrReadPoint:
			return present(ev.ReadPoint)
		case query.AttrUserID:
			return present(requestOf(ev).UserID)
		case query.AttrDeclarationTime:
			return timeValue(ev.CorrectiveDeclarationTime)
		case query.AttrErrorReason:
			return present(ev.CorrectiveReason)
		case query.AttrRequestID:
			return requestOf(ev).ID, ev.Request != nil
		case query.AttrCaptureID:
			return present(requestOf(ev).CaptureID)
		}
		return nil, false
	}
}

var elementSets = map[query.Set]func(ev *models.Event) []record{
	query.SetEpcs: func(ev *models.Event) []record {
		out := make([]record, len(ev.Epcs))
		for i := range ev.Epcs {
			epc := &ev.Epcs[i]
			out[i] = func(attr query.Attr) (any, bool) {
				switch attr {
				case query.AttrType:
					return epc.Type, true
				case query.AttrID:
					return epc.ID, true
				case query.AttrQuantity:
					return floatValue(epc.Quantity)
				case query.AttrUnit:
					return present(epc.UnitOfMeasure)
				}
				return nil, false
			}
		}
		return out
	},
	query.SetSources: func(ev *models.Event) []record {
		out := make([]record, len(ev.Sources))
		for i, s := range ev.Sources {
			out[i] = typedID(s.Type, s.ID)
		}
		return out
	},
	query.SetDestinations: func(ev *models.Event) []record {
		out := make([]record, len(ev.Destinations))
		for i, d := range ev.Destinations {
			out[i] = typedID(d.Type, d.ID)
		}
		return out
	},
	query.SetTransactions: func(ev *models.Event) []record {
		out := make([]record, len(ev.Transactions))
		for i, t := range ev.Transactions {
			out[i] = typedID(t.Type, t.ID)
		}
		return out
	},
	query.SetPersistentDispositions: func(ev *models.Event) []record {
		out := make([]record, len(ev.PersistentDispositions))
		for i, pd := range ev.PersistentDispositions {
			out[i] = typedID(pd.Type, pd.ID)
		}
		return out
	},
	query.SetSensorElements: func(ev *models.Event) []record {
		out := make([]record, len(ev.SensorElements))
		for i := range ev.SensorElements {
			se := &ev.SensorElements[i]
			out[i] = func(attr query.Attr) (any, bool) {
				switch attr {
				case query.AttrStartTime:
					return timeValue(se.StartTime)
				case query.AttrEndTime:
					return timeValue(se.EndTime)
				case query.AttrBizRules:
					return present(se.BizRules)
				case query.AttrDeviceID:
					return present(se.DeviceID)
				case query.AttrDataProcessingMethod:
					return present(se.DataProcessingMethod)
				}
				return nil, false
			}
		}
		return out
	},
	query.SetReports: func(ev *models.Event) []record {
		out := make([]record, len(ev.Reports))
		for i := range ev.Reports {
			out[i] = reportRecord(&ev.Reports[i])
		}
		return out
	},
	query.SetFields: func(ev *models.Event) []record {
		out := make([]record, len(ev.Fields))
		for i := range ev.Fields {
			out[i] = fieldRecord(&ev.Fields[i])
		}
		return out
	},
	query.SetCorrectiveIDs: func(ev *models.Event) []record {
		out := make([]record, len(ev.CorrectiveEventIDs))
		for i, id := range ev.CorrectiveEventIDs {
			out[i] = func(attr query.Attr) (any, bool) {
				return id, attr == query.AttrID
			}
		}
		return out
	},
}

func typedID(typ any, id string) record {
	return func(attr query.Attr) (any, bool) {
		switch attr {
		case query.AttrType:
			return typ, true
		case query.AttrID:
			return id, true
		}
		return nil, false
	}
}

func reportRecord(r *models.SensorReport) record {
	return func(attr query.Attr) (any, bool) {
		switch attr {
		case query.AttrType:
			return present(r.Type)
		case query.AttrDeviceID:
			return present(r.DeviceID)
		case query.AttrDataProcessingMethod:
			return present(r.DataProcessingMethod)
		case query.AttrMicroorganism:
			return present(r.Microorganism)
		case query.AttrChemicalSubstance:
			return present(r.ChemicalSubstance)
		case query.AttrStringValue:
			return present(r.StringValue)
		case query.AttrBooleanValue:
			if r.BooleanValue == nil {
				return nil, false
			}
			return *r.BooleanValue, true
		case query.AttrHexBinaryValue:
			return present(r.HexBinaryValue)
		case query.AttrURIValue:
			return present(r.URIValue)
		case query.AttrUnit:
			return present(r.UnitOfMeasure)
		case query.AttrValue:
			return floatValue(r.Value)
		case query.AttrMinValue:
			return floatValue(r.MinValue)
		case query.AttrMaxValue:
			return floatValue(r.MaxValue)
		case query.AttrMeanValue:
			return floatValue(r.MeanValue)
		case query.AttrSDev:
			return floatValue(r.SDev)
		case query.AttrPercRank:
			return floatValue(r.PercRank)
		case query.AttrPercValue:
			return floatValue(r.PercValue)
		}
		return nil, false
	}
}

func fieldRecord(f *models.Field) record {
	return func(attr query.Attr) (any, bool) {
		switch attr {
		case query.AttrKind:
			return f.Kind, true
		case query.AttrInner:
			return f.Inner(), true
		case query.AttrNamespace:
			return f.Namespace, true
		case query.AttrName:
			return f.Name, true
		case query.AttrText:
			v, ok := f.Value.(models.Text)
			return string(v), ok
		case query.AttrNumeric:
			v, ok := f.Value.(models.Numeric)
			return float64(v), ok
		case query.AttrDate:
			v, ok := f.Value.(models.Date)
			return v.Time(), ok
		}
		return nil, false
	}
}

func present(s string) (any, bool) {
	return s, s != ""
}

func floatValue(f *float64) (any, bool) {
	if f == nil {
		return nil, false
	}
	return *f, true
}

func timeValue(t *time.Time) (any, bool) {
	if t == nil {
		return nil, false
	}
	return *t, true
}
