package store

import (
	"strings"
	"testing"
	"time"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

func explain(t *testing.T, params ...query.Parameter) (string, []any) {
	t.Helper()

	plan, err := query.Build(params)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	stmt, args, err := Explain(plan)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	return stmt, args
}

func sameArgs(t *testing.T, got []any, want ...any) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("expected args %v got %v", want, got)
	}
	for i := range want {
		if wt, ok := want[i].(time.Time); ok {
			if gt, ok := got[i].(time.Time); !ok || !gt.Equal(wt) {
				t.Fatalf("arg %d: expected %s got %#v", i+1, wt, got[i])
			}
			continue
		}
		if got[i] != want[i] {
			t.Fatalf("arg %d: expected %#v got %#v", i+1, want[i], got[i])
		}
	}
}

func TestExplain_EmptyPlan(t *testing.T) {
	stmt, args := explain(t)

	want := selectEvents + "\nORDER BY e.id"
	if stmt != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, stmt)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestExplain_FilterOrderAndPagination(t *testing.T) {
	stmt, args := explain(t,
		query.NewParameter("perPage", "10"),
		query.NewParameter("EQ_bizStep", "shipping"),
		query.NewParameter("nextPageToken", "20"),
		query.NewParameter("orderBy", "eventTime"),
	)

	want := selectEvents + `
WHERE e.business_step = $1
ORDER BY e.event_time DESC, e.id DESC
LIMIT 10
OFFSET 20`
	if stmt != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, stmt)
	}
	sameArgs(t, args, "shipping")
}

func TestExplain_Clauses(t *testing.T) {
	cases := []struct {
		name   string
		param  query.Parameter
		clause string
		args   []any
	}{
		{
			"multi value equality",
			query.NewParameter("EQ_disposition", "a", "b"),
			"e.disposition IN ($1, $2)",
			[]any{"a", "b"},
		},
		{
			"enum values",
			query.NewParameter("eventType", "ObjectEvent", "AssociationEvent"),
			"e.event_type IN ($1, $2)",
			[]any{int64(1), int64(5)},
		},
		{
			"record time comes from the request",
			query.NewParameter("LT_recordTime", "2024-01-01T00:00:00Z"),
			"r.record_time < $1",
			[]any{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			"existence",
			query.NewParameter("EXISTS_errorDeclaration"),
			"e.corrective_declaration_time IS NOT NULL",
			nil,
		},
		{
			"glob match escapes like wildcards",
			query.NewParameter("MATCH_epc", "urn:epc:*:1_2%"),
			`EXISTS (SELECT 1 FROM epcis_epc c WHERE c.event_id = e.id AND c.epc_type IN ($1, $2) AND c.epc LIKE $3 ESCAPE '\')`,
			[]any{int64(models.EpcList), int64(models.EpcChild), `urn:epc:%:1\_2\%`},
		},
		{
			"inner ilmd",
			query.NewParameter("EQ_INNER_ILMD_urn:ns#lot", "L1"),
			"EXISTS (SELECT 1 FROM epcis_field c WHERE c.event_id = e.id AND c.kind = $1 AND c.parent_index IS NOT NULL AND c.namespace = $2 AND c.name = $3 AND c.text_value = $4)",
			[]any{int64(models.FieldILMD), "urn:ns", "lot", "L1"},
		},
		{
			"top level extension comparison",
			query.NewParameter("GT_urn:ns#temp", "4"),
			"EXISTS (SELECT 1 FROM epcis_field c WHERE c.event_id = e.id AND c.kind = $1 AND c.parent_index IS NULL AND c.namespace = $2 AND c.name = $3 AND c.numeric_value > $4)",
			[]any{int64(models.FieldExtension), "urn:ns", "temp", 4.0},
		},
		{
			"quantity",
			query.NewParameter("GE_quantity", "2"),
			"EXISTS (SELECT 1 FROM epcis_epc c WHERE c.event_id = e.id AND c.epc_type = $1 AND c.quantity IS NOT NULL AND c.quantity >= $2)",
			[]any{int64(models.EpcQuantity), 2.0},
		},
		{
			"typed relation",
			query.NewParameter("EQ_source_urn:sdt:owning_party", "p1"),
			"EXISTS (SELECT 1 FROM epcis_source c WHERE c.event_id = e.id AND c.source_type = $1 AND c.source_id = $2)",
			[]any{"urn:sdt:owning_party", "p1"},
		},
		{
			"report value with unit",
			query.NewParameter("EQ_value_CEL", "21.5"),
			"EXISTS (SELECT 1 FROM epcis_sensor_report c WHERE c.event_id = e.id AND c.uom = $1 AND c.value = $2)",
			[]any{"CEL", 21.5},
		},
		{
			"hierarchy",
			query.NewParameter("WD_bizLocation", "loc:A"),
			"(e.business_location IN ($1) OR EXISTS (SELECT 1 FROM masterdata_hierarchy h WHERE h.md_type = $2 AND h.id = e.business_location AND h.root IN ($3)))",
			[]any{"loc:A", models.LocationType, "loc:A"},
		},
		{
			"masterdata attribute",
			query.NewParameter("EQATTR_readPoint_site", "north"),
			"EXISTS (SELECT 1 FROM masterdata_attribute a WHERE a.md_type = $1 AND a.md_id = e.read_point AND a.attribute_id = $2 AND a.value IN ($3))",
			[]any{models.ReadPointType, "site", "north"},
		},
		{
			"masterdata attribute presence",
			query.NewParameter("HASATTR_bizLocation_site"),
			"EXISTS (SELECT 1 FROM masterdata_attribute a WHERE a.md_type = $1 AND a.md_id = e.business_location AND a.attribute_id = $2)",
			[]any{models.LocationType, "site"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, args := explain(t, tc.param)
			if !strings.Contains(stmt, "\nWHERE "+tc.clause+"\n") {
				t.Fatalf("expected clause\n%s\nin\n%s", tc.clause, stmt)
			}
			sameArgs(t, args, tc.args...)
		})
	}
}

func TestExplain_TimesAreUTC(t *testing.T) {
	_, args := explain(t, query.NewParameter("GE_eventTime", "2024-01-01T02:00:00+02:00"))

	got, ok := args[0].(time.Time)
	if !ok || got.Location() != time.UTC || !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected UTC time got %#v", args[0])
	}
}

func TestGlobToLike(t *testing.T) {
	cases := map[string]string{
		"urn:epc:*":    "urn:epc:%",
		"a_b":          `a\_b`,
		"100%":         `100\%`,
		`back\slash`:   `back\\slash`,
		"*mid*":        "%mid%",
		"no-wildcards": "no-wildcards",
	}
	for in, want := range cases {
		if got := globToLike(in); got != want {
			t.Fatalf("%s: expected %s got %s", in, want, got)
		}
	}
}
