package store

import (
	"context"
	"strings"
	"testing"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

func duckFixture(t *testing.T, req *models.Request) *DuckStore {
	t.Helper()

	dk, err := NewDuckStore(context.Background(), "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(dk.Close)

	if _, err := dk.Capture(context.Background(), req); err != nil {
		t.Fatalf("capture: %v", err)
	}
	return dk
}

func TestDuckStore_MatchesMemoryStore(t *testing.T) {
	mem := fixture(t)
	dk := duckFixture(t, fixtureRequest())

	for _, tc := range filterCases {
		t.Run(tc.name, func(t *testing.T) {
			want := strings.Join(run(t, mem, tc.param), ",")
			got := strings.Join(run(t, dk, tc.param), ",")
			if got != want || got != tc.want {
				t.Fatalf("expected [%s] got duckdb [%s] memory [%s]", tc.want, got, want)
			}
		})
	}
}

func TestDuckStore_DecodesStoredEvents(t *testing.T) {
	dk := duckFixture(t, fixtureRequest())

	plan, err := query.Build([]query.Parameter{query.NewParameter("orderBy", "eventTime")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	events, err := dk.Query(context.Background(), plan)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events got %d", len(events))
	}

	ev3 := events[0]
	if ev3.EventID != "ev3" || ev3.Action != nil {
		t.Fatalf("expected ev3 without action got %s %v", ev3.EventID, ev3.Action)
	}
	if ev3.Request == nil || ev3.Request.UserID != "alice" || ev3.Request.CaptureID == "" {
		t.Fatalf("expected request back-reference got %+v", ev3.Request)
	}
	if len(ev3.Reports) != 1 || ev3.Reports[0].Value == nil || *ev3.Reports[0].Value != 21.5 {
		t.Fatalf("unexpected reports %+v", ev3.Reports)
	}
	if ev1 := events[2]; ev1.Action == nil || *ev1.Action != models.ActionAdd {
		t.Fatalf("expected ev1 with ADD got %+v", ev1.Action)
	}
}

func TestDuckStore_OrderAndPagination(t *testing.T) {
	dk := duckFixture(t, fixtureRequest())

	desc := run(t, dk, query.NewParameter("orderBy", "eventTime"))
	if strings.Join(desc, ",") != "ev3,ev2,ev1" {
		t.Fatalf("expected descending order got %v", desc)
	}

	page := run(t, dk,
		query.NewParameter("perPage", "1"),
		query.NewParameter("orderBy", "eventTime"),
		query.NewParameter("orderDirection", "ASC"),
		query.NewParameter("nextPageToken", "1"),
	)
	if strings.Join(page, ",") != "ev2" {
		t.Fatalf("expected second page got %v", page)
	}

	if past := run(t, dk, query.NewParameter("nextPageToken", "10")); len(past) != 0 {
		t.Fatalf("expected empty page got %v", past)
	}
}

func TestDuckStore_QuantityOnlyMatchesQuantityList(t *testing.T) {
	dk := duckFixture(t, quantityRequest())

	if got := strings.Join(run(t, dk, query.NewParameter("GT_quantity", "5")), ","); got != "object" {
		t.Fatalf("expected [object] got [%s]", got)
	}
	if got := run(t, dk, query.NewParameter("MATCH_anyEPCClass", "urn:epc:class:*")); len(got) != 4 {
		t.Fatalf("expected every quantity list to match its class got %v", got)
	}
}

func TestDuckStore_PutMasterdataReplaces(t *testing.T) {
	dk := duckFixture(t, fixtureRequest())
	ctx := context.Background()

	if err := dk.PutMasterdata(ctx, models.MasterData{Type: models.LocationType, ID: "loc:A"}); err != nil {
		t.Fatalf("put masterdata: %v", err)
	}

	if got := strings.Join(run(t, dk, query.NewParameter("WD_bizLocation", "loc:A")), ","); got != "ev3" {
		t.Fatalf("expected stale children dropped got [%s]", got)
	}
	if got := run(t, dk, query.NewParameter("HASATTR_bizLocation_site")); len(got) != 0 {
		t.Fatalf("expected stale attributes dropped got %v", got)
	}
}

func TestDuckStore_RejectsDuplicateCaptureID(t *testing.T) {
	dk := duckFixture(t, &models.Request{CaptureID: "c1"})

	if _, err := dk.Capture(context.Background(), &models.Request{CaptureID: "c1"}); err == nil {
		t.Fatal("duplicate capture id accepted")
	}
}
