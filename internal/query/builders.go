package query

import (
	"strings"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
)

func orderBy(plan *Plan, p Parameter, _ []string) error {
	field, err := p.AsString()
	if err != nil {
		return err
	}

	switch field {
	case "eventTime":
		plan.orderBy = AttrEventTime
	case "recordTime":
		plan.orderBy = AttrRecordTime
	default:
		return invalid(p.Name, "unknown order field %q", field)
	}
	return nil
}

func orderDirection(plan *Plan, p Parameter, _ []string) error {
	dir, err := p.AsString()
	if err != nil {
		return err
	}

	switch dir {
	case "ASC":
		plan.ascending = true
	case "DESC":
		plan.ascending = false
	default:
		return invalid(p.Name, "order direction must be ASC or DESC, got %q", dir)
	}
	return nil
}

func nextPageToken(plan *Plan, p Parameter, _ []string) error {
	n, err := count(p)
	if err != nil {
		return err
	}
	plan.skipAtLeast(n)
	return nil
}

func countLimit(plan *Plan, p Parameter, _ []string) error {
	n, err := count(p)
	if err != nil {
		return err
	}
	plan.takeAtMost(n)
	return nil
}

func count(p Parameter) (int, error) {
	n, err := p.AsInt()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, invalid(p.Name, "must not be negative, got %d", n)
	}
	return n, nil
}

func eventType(plan *Plan, p Parameter, _ []string) error {
	types := make([]any, len(p.Values))
	for i, v := range p.Values {
		t, err := models.ParseEventType(v)
		if err != nil {
			return invalid(p.Name, "unknown event type %q", v)
		}
		types[i] = t
	}
	plan.filter(In(AttrEventType, types...))
	return nil
}

func action(plan *Plan, p Parameter, _ []string) error {
	actions := make([]any, len(p.Values))
	for i, v := range p.Values {
		a, err := models.ParseAction(v)
		if err != nil {
			return invalid(p.Name, "unknown action %q", v)
		}
		actions[i] = a
	}
	plan.filter(In(AttrAction, actions...))
	return nil
}

func requestID(plan *Plan, p Parameter, _ []string) error {
	ids, err := p.Ints()
	if err != nil {
		return err
	}
	plan.filter(In(AttrRequestID, anys(ids)...))
	return nil
}

func equals(attr Attr) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		plan.filter(In(attr, anys(p.Values)...))
		return nil
	}
}

func exists(attr Attr) buildFunc {
	return func(plan *Plan, _ Parameter, _ []string) error {
		plan.filter(NotNull(attr))
		return nil
	}
}

func timeBound(op Op, attr Attr) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		t, err := p.AsDate()
		if err != nil {
			return err
		}
		plan.filter(Cmp(op, attr, t))
		return nil
	}
}

func within(attr Attr, vocab string) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		plan.filter(Within(attr, vocab, p.Values))
		return nil
	}
}

// quantity only considers quantity-list EPCs of object events that carry
// a quantity. Child, input and output quantities never match.
func quantity(op Op) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		q, err := p.AsFloat()
		if err != nil {
			return err
		}
		plan.filter(Any(SetEpcs,
			Eq(AttrType, models.EpcQuantity),
			NotNull(AttrQuantity),
			Cmp(op, AttrQuantity, q),
		))
		return nil
	}
}

func anyEquals(set Set, attr Attr) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		plan.filter(Any(set, In(attr, anys(p.Values)...)))
		return nil
	}
}

func anyTimeBound(set Set, op Op, attr Attr) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		t, err := p.AsDate()
		if err != nil {
			return err
		}
		plan.filter(Any(set, Cmp(op, attr, t)))
		return nil
	}
}

func anyBound(set Set, op Op, attr Attr) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		f, err := p.AsFloat()
		if err != nil {
			return err
		}
		plan.filter(Any(set, Cmp(op, attr, f)))
		return nil
	}
}

func anyBool(set Set, attr Attr) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		b, err := p.AsBool()
		if err != nil {
			return err
		}
		plan.filter(Any(set, Eq(attr, b)))
		return nil
	}
}

func persistentDisposition(typ models.DispositionType) buildFunc {
	return func(plan *Plan, p Parameter, _ []string) error {
		plan.filter(Any(SetPersistentDispositions,
			Eq(AttrType, typ),
			In(AttrID, anys(p.Values)...),
		))
		return nil
	}
}

var matchTypes = map[string][]models.EpcType{
	"epc":            {models.EpcList, models.EpcChild},
	"parentID":       {models.EpcParentID},
	"inputEPC":       {models.EpcInput},
	"outputEPC":      {models.EpcOutput},
	"anyEPC":         {models.EpcParentID, models.EpcList, models.EpcChild, models.EpcInput, models.EpcOutput},
	"epcClass":       {models.EpcQuantity, models.EpcChildQuantity},
	"inputEPCClass":  {models.EpcInputQuantity},
	"outputEPCClass": {models.EpcOutputQuantity},
	"anyEPCClass":    models.QuantityTypes,
}

func matchEpc(plan *Plan, p Parameter, captures []string) error {
	types, ok := matchTypes[captures[0]]
	if !ok {
		return invalid(p.Name, "unknown epc family %q", captures[0])
	}
	plan.filter(Any(SetEpcs,
		In(AttrType, anys(types)...),
		Like(AttrID, p.Values...),
	))
	return nil
}

func relation(set Set) buildFunc {
	return func(plan *Plan, p Parameter, captures []string) error {
		typ := captures[0]
		if typ == "" {
			return invalid(p.Name, "missing %s type", set)
		}
		plan.filter(Any(set,
			Eq(AttrType, typ),
			In(AttrID, anys(p.Values)...),
		))
		return nil
	}
}

// field matches a generic field by kind, nesting, namespace and name. When
// withValues is set the field text must also be one of the values.
func field(kind models.FieldKind, inner, withValues bool) buildFunc {
	return func(plan *Plan, p Parameter, captures []string) error {
		ns, name, err := fieldPath(p.Name, captures[0])
		if err != nil {
			return err
		}

		children := fieldIdentity(kind, inner, ns, name)
		if withValues {
			children = append(children, In(AttrText, anys(p.Values)...))
		}
		plan.filter(Any(SetFields, children...))
		return nil
	}
}

func fieldIdentity(kind models.FieldKind, inner bool, ns, name string) []Expr {
	return []Expr{
		Eq(AttrKind, kind),
		Eq(AttrInner, inner),
		Eq(AttrNamespace, ns),
		Eq(AttrName, name),
	}
}

func fieldPath(param, path string) (ns, name string, err error) {
	i := strings.LastIndex(path, "#")
	if i <= 0 || i == len(path)-1 {
		return "", "", invalid(param, "field must be written namespace#name, got %q", path)
	}
	return path[:i], path[i+1:], nil
}

func reportValue(plan *Plan, p Parameter, captures []string) error {
	uom := captures[0]
	if uom == "" {
		return invalid(p.Name, "missing unit of measure")
	}
	values, err := p.Floats()
	if err != nil {
		return err
	}
	plan.filter(Any(SetReports,
		Eq(AttrUnit, uom),
		In(AttrValue, anys(values)...),
	))
	return nil
}

var masterdataFields = map[string]struct {
	attr  Attr
	vocab string
}{
	"bizLocation": {AttrBizLocation, models.LocationType},
	"readPoint":   {AttrReadPoint, models.ReadPointType},
}

func masterdataAttribute(withValues bool) buildFunc {
	return func(plan *Plan, p Parameter, captures []string) error {
		fieldName, attrID, _ := strings.Cut(captures[0], "_")

		md, ok := masterdataFields[fieldName]
		if !ok {
			return invalid(p.Name, "unknown masterdata field %q", fieldName)
		}
		if attrID == "" {
			return invalid(p.Name, "missing attribute name")
		}

		var values []string
		if withValues {
			values = p.Values
		}
		plan.filter(HasAttribute(md.attr, md.vocab, attrID, values))
		return nil
	}
}

var cmpOpNames = map[string]Op{
	"EQ": OpEq,
	"GT": OpGt,
	"GE": OpGte,
	"LT": OpLt,
	"LE": OpLte,
}

var sensorFieldKinds = map[string]models.FieldKind{
	"SENSORELEMENT":  models.FieldSensor,
	"SENSORMETADATA": models.FieldSensorMetadata,
	"SENSORREPORT":   models.FieldSensorReport,
}

var reportNumAttrs = map[string]Attr{
	"value":     AttrValue,
	"minValue":  AttrMinValue,
	"maxValue":  AttrMaxValue,
	"meanValue": AttrMeanValue,
	"sDev":      AttrSDev,
	"percValue": AttrPercValue,
}

// compareField handles op_ns#name style names: captures are op, ns, name.
func compareField(kind models.FieldKind, inner bool) buildFunc {
	return func(plan *Plan, p Parameter, captures []string) error {
		return compareGeneric(plan, p, kind, inner, captures[0], captures[1], captures[2])
	}
}

// compareSensor handles op_SENSORxxx_ns#name: captures are op, sensor kind, ns, name.
func compareSensor(inner bool) buildFunc {
	return func(plan *Plan, p Parameter, captures []string) error {
		return compareGeneric(plan, p, sensorFieldKinds[captures[1]], inner, captures[0], captures[2], captures[3])
	}
}

// compareGeneric compares the field as a date when the value parses as
// one, numerically otherwise.
func compareGeneric(plan *Plan, p Parameter, kind models.FieldKind, inner bool, opName, ns, name string) error {
	op := cmpOpNames[opName]

	var value Expr
	if p.IsDate() {
		t, _ := p.AsDate()
		value = Cmp(op, AttrDate, t)
	} else {
		f, err := p.AsFloat()
		if err != nil {
			return err
		}
		value = Cmp(op, AttrNumeric, f)
	}

	plan.filter(Any(SetFields, append(fieldIdentity(kind, inner, ns, name), value)...))
	return nil
}

// compareReport handles op_field_UOM: captures are op, report field, unit.
func compareReport(plan *Plan, p Parameter, captures []string) error {
	f, err := p.AsFloat()
	if err != nil {
		return err
	}
	plan.filter(Any(SetReports,
		Eq(AttrUnit, captures[2]),
		Cmp(cmpOpNames[captures[0]], reportNumAttrs[captures[1]], f),
	))
	return nil
}
