package query

import (
	"testing"
	"time"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
)

func single(t *testing.T, name string, values ...string) Expr {
	t.Helper()

	plan, err := Build([]Parameter{NewParameter(name, values...)})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if plan.Len() != 1 {
		t.Fatalf("%s: expected one filter got %d", name, plan.Len())
	}
	return plan.filters[0]
}

// child returns the child of an OpAny node comparing attr.
func child(t *testing.T, e Expr, attr Attr) Expr {
	t.Helper()

	for _, c := range e.Children {
		if c.Attr == attr {
			return c
		}
	}
	t.Fatalf("no %s child in %s", attr, e)
	return Expr{}
}

func TestLookup_PriorityOrder(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
	}{
		{"EQ_bizStep", "EQ_bizStep"},
		{"EQ_persistentDisposition_set", "EQ_persistentDisposition_set"},
		{"EXISTS_errorDeclaration", "EXISTS_errorDeclaration"},
		{"EQ_source_urn:epcglobal:cbv:sdt:owning_party", "EQ_source_*"},
		{"EQ_INNER_ILMD_ns#lot", "EQ_INNER_ILMD_*"},
		{"EQ_ILMD_ns#lot", "EQ_ILMD_*"},
		{"EQ_INNER_SENSORREPORT_ns#x", "EQ_INNER_SENSORREPORT_*"},
		{"EXISTS_INNER_ns#x", "EXISTS_INNER_*"},
		{"EXISTS_ns#x", "EXISTS_*"},
		{"EQ_INNER_ns#x", "EQ_INNER_*"},
		{"EQ_value_CEL", "EQ_value_*"},
		{"EQ_maxValue_CEL", eqReportNums},
		{"EQ_sDev_KGM", eqReportNums},
		{"EQ_maxValue_ns#x", "EQ_*"},
		{"EQ_ns#x", "EQ_*"},
		{"EQATTR_bizLocation_name", "EQATTR_*"},
		{"HASATTR_readPoint_name", "HASATTR_*"},
		{"GE_INNER_ILMD_ns#x", `^` + cmpOps + `_INNER_ILMD_(.+)#([^#]+)$`},
		{"GE_ILMD_ns#x", `^` + cmpOps + `_ILMD_(.+)#([^#]+)$`},
		{"LT_INNER_SENSORELEMENT_ns#x", `^` + cmpOps + `_INNER_` + sensorKinds + `_(.+)#([^#]+)$`},
		{"LT_SENSORMETADATA_ns#x", `^` + cmpOps + `_` + sensorKinds + `_(.+)#([^#]+)$`},
		{"GT_INNER_ns#x", `^` + cmpOps + `_INNER_(.+)#([^#]+)$`},
		{"LE_maxValue_KGM", `^` + cmpOps + `_` + reportNums + `_([A-Za-z0-9]+)$`},
		{"GT_ns#x", `^` + cmpOps + `_(.+)#([^#]+)$`},
	}

	for _, tc := range cases {
		r, _ := lookup(tc.name)
		if r == nil {
			t.Fatalf("%s: no rule", tc.name)
		}
		if r.pattern != tc.pattern {
			t.Fatalf("%s: expected rule %s got %s", tc.name, tc.pattern, r.pattern)
		}
	}

	for _, name := range []string{"FOO_bar", "GT_eventTime", "NE_bizStep", "GT_value"} {
		if r, _ := lookup(name); r != nil {
			t.Fatalf("%s: unexpected rule %s", name, r.pattern)
		}
	}
}

func TestRules_InnerIlmdTargetsNestedFields(t *testing.T) {
	e := single(t, "EQ_INNER_ILMD_urn:ns#lot", "L1")
	if e.Op != OpAny || e.Set != SetFields {
		t.Fatalf("unexpected expr %s", e)
	}
	if child(t, e, AttrInner).Values[0] != true {
		t.Fatalf("expected inner field: %s", e)
	}
	if child(t, e, AttrKind).Values[0] != models.FieldILMD {
		t.Fatalf("expected ILMD kind: %s", e)
	}

	top := single(t, "EQ_ILMD_urn:ns#lot", "L1")
	if child(t, top, AttrInner).Values[0] != false {
		t.Fatalf("expected top-level field: %s", top)
	}
}

func TestRules_GenericFieldsAreCustom(t *testing.T) {
	e := single(t, "EQ_urn:ns#color", "red", "blue")
	if child(t, e, AttrKind).Values[0] != models.FieldCustom {
		t.Fatalf("expected custom kind: %s", e)
	}
	if len(child(t, e, AttrText).Values) != 2 {
		t.Fatalf("expected both values: %s", e)
	}

	ex := single(t, "EXISTS_urn:ns#color")
	for _, c := range ex.Children {
		if c.Attr == AttrText {
			t.Fatalf("exists must not constrain the value: %s", ex)
		}
	}
}

func TestRules_FieldPathSplitsAtLastHash(t *testing.T) {
	e := single(t, "EQ_http://example.com/a#b#c", "1")
	if ns := child(t, e, AttrNamespace).Values[0]; ns != "http://example.com/a#b" {
		t.Fatalf("unexpected namespace %v", ns)
	}
	if name := child(t, e, AttrName).Values[0]; name != "c" {
		t.Fatalf("unexpected name %v", name)
	}
}

func TestRules_ComparisonKinds(t *testing.T) {
	cases := []struct {
		name string
		kind models.FieldKind
		op   Op
		attr Attr
	}{
		{"GE_INNER_ILMD_ns#best", models.FieldILMD, OpGte, AttrDate},
		{"LT_SENSORREPORT_ns#temp", models.FieldSensorReport, OpLt, AttrNumeric},
		{"GT_INNER_SENSORELEMENT_ns#temp", models.FieldSensor, OpGt, AttrNumeric},
		{"LE_ns#temp", models.FieldExtension, OpLte, AttrNumeric},
		{"EQ_INNER_ns#temp", models.FieldCustom, OpIn, AttrText},
	}

	for _, tc := range cases {
		value := "12.5"
		if tc.attr == AttrDate {
			value = "2024-05-01T00:00:00Z"
		}
		e := single(t, tc.name, value)
		if k := child(t, e, AttrKind).Values[0]; k != tc.kind {
			t.Fatalf("%s: expected kind %s got %v", tc.name, tc.kind, k)
		}
		if c := child(t, e, tc.attr); c.Op != tc.op {
			t.Fatalf("%s: expected op %s got %s", tc.name, tc.op, c.Op)
		}
	}
}

func TestRules_DateComparisonValue(t *testing.T) {
	e := single(t, "GE_ns#best", "2024-05-01")
	got, ok := child(t, e, AttrDate).Values[0].(time.Time)
	if !ok || !got.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date value %v", got)
	}
}

func TestRules_ReportComparison(t *testing.T) {
	e := single(t, "GE_maxValue_KGM", "3")
	if e.Set != SetReports {
		t.Fatalf("unexpected expr %s", e)
	}
	if child(t, e, AttrUnit).Values[0] != "KGM" {
		t.Fatalf("unexpected unit: %s", e)
	}
	if c := child(t, e, AttrMaxValue); c.Op != OpGte || c.Values[0] != 3.0 {
		t.Fatalf("unexpected comparison: %s", e)
	}

	for _, name := range []string{"EQ_minValue_CEL", "EQ_maxValue_CEL", "EQ_meanValue_CEL", "EQ_sDev_CEL", "EQ_percValue_CEL"} {
		eq := single(t, name, "4")
		if child(t, eq, AttrUnit).Values[0] != "CEL" {
			t.Fatalf("%s: unexpected unit: %s", name, eq)
		}
		var cmp bool
		for _, c := range eq.Children {
			cmp = cmp || (c.Op == OpEq && c.Attr != AttrUnit && c.Values[0] == 4.0)
		}
		if !cmp {
			t.Fatalf("%s: expected equality on the report field: %s", name, eq)
		}
	}

	v := single(t, "EQ_value_CEL", "1", "2.5")
	if c := child(t, v, AttrValue); c.Op != OpIn || len(c.Values) != 2 {
		t.Fatalf("unexpected value filter: %s", v)
	}
}

func TestRules_MatchFamilies(t *testing.T) {
	cases := map[string]int{
		"MATCH_epc":            2,
		"MATCH_parentID":       1,
		"MATCH_inputEPC":       1,
		"MATCH_outputEPC":      1,
		"MATCH_anyEPC":         5,
		"MATCH_epcClass":       2,
		"MATCH_inputEPCClass":  1,
		"MATCH_outputEPCClass": 1,
		"MATCH_anyEPCClass":    4,
	}

	for name, n := range cases {
		e := single(t, name, "urn:epc:id:sgtin:*", "urn:epc:id:sscc:1")
		if got := len(child(t, e, AttrType).Values); got != n {
			t.Fatalf("%s: expected %d types got %d", name, n, got)
		}
		if c := child(t, e, AttrID); c.Op != OpLike || len(c.Values) != 2 {
			t.Fatalf("%s: unexpected pattern filter %s", name, c)
		}
	}
}

func TestRules_QuantityOnlyConsidersQuantityList(t *testing.T) {
	e := single(t, "GT_quantity", "10")
	typ := child(t, e, AttrType)
	if typ.Op != OpEq || typ.Values[0] != models.EpcQuantity {
		t.Fatalf("expected quantity list only got %s", e)
	}

	var notNull, cmp bool
	for _, c := range e.Children {
		if c.Attr != AttrQuantity {
			continue
		}
		notNull = notNull || c.Op == OpNotNull
		cmp = cmp || c.Op == OpGt
	}
	if !notNull || !cmp {
		t.Fatalf("expected present quantity compared with >: %s", e)
	}
}

func TestRules_TypedRelation(t *testing.T) {
	e := single(t, "EQ_destination_urn:epcglobal:cbv:sdt:owning_party", "urn:epc:id:pgln:1", "urn:epc:id:pgln:2")
	if e.Set != SetDestinations {
		t.Fatalf("unexpected set %s", e.Set)
	}
	if typ := child(t, e, AttrType).Values[0]; typ != "urn:epcglobal:cbv:sdt:owning_party" {
		t.Fatalf("unexpected type %v", typ)
	}
}

func TestRules_Masterdata(t *testing.T) {
	wd := single(t, "WD_bizLocation", "urn:epc:id:sgln:1", "urn:epc:id:sgln:2")
	if wd.Op != OpWithin || wd.Attr != AttrBizLocation || wd.Vocab != models.LocationType || len(wd.Values) != 2 {
		t.Fatalf("unexpected expr %s", wd)
	}

	eq := single(t, "EQATTR_readPoint_urn:attr:site", "north")
	if eq.Op != OpHasAttribute || eq.Vocab != models.ReadPointType || eq.Name != "urn:attr:site" || len(eq.Values) != 1 {
		t.Fatalf("unexpected expr %s", eq)
	}

	has := single(t, "HASATTR_bizLocation_urn:attr:site")
	if has.Op != OpHasAttribute || len(has.Values) != 0 {
		t.Fatalf("unexpected expr %s", has)
	}
}

func TestRules_EnumValues(t *testing.T) {
	e := single(t, "eventType", "ObjectEvent", "TransformationEvent")
	if e.Values[0] != models.ObjectEvent || e.Values[1] != models.TransformationEvent {
		t.Fatalf("unexpected expr %s", e)
	}

	a := single(t, "EQ_action", "DELETE")
	if a.Values[0] != models.ActionDelete {
		t.Fatalf("unexpected expr %s", a)
	}

	r := single(t, "EQ_requestID", "4", "7")
	if r.Values[0] != int64(4) || r.Values[1] != int64(7) {
		t.Fatalf("unexpected expr %s", r)
	}
}
