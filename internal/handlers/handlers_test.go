package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/PratikDhanave/epcis-query-service/internal/auth"
	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
	"github.com/PratikDhanave/epcis-query-service/internal/store"
)

const captureBody = `{
  "events": [
    {"eventID": "e1", "type": "ObjectEvent", "eventTime": "2024-03-01T08:00:00Z", "action": "ADD",
     "bizStep": "shipping", "epcs": [{"type": "list", "id": "urn:epc:id:sgtin:1.2.3"}]},
    {"eventID": "e2", "type": "ObjectEvent", "eventTime": "2024-03-01T09:00:00Z", "action": "OBSERVE",
     "bizStep": "receiving",
     "fields": [{"index": 0, "kind": "ilmd", "namespace": "urn:ns", "name": "lot", "textValue": "L1"}]}
  ]
}`

func newRouter(t *testing.T, captured *int) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	r := gin.New()
	api := r.Group("/")
	api.Use(auth.APIKeyMiddleware(map[string]string{"k1": "alice"}))
	RegisterQueryRoutes(api, st)
	RegisterCaptureRoutes(api, st, func() { *captured++ })
	return r, st
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", "k1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCaptureThenQuery(t *testing.T) {
	captured := 0
	r, _ := newRouter(t, &captured)

	w := do(r, http.MethodPost, "/capture", captureBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var resp models.CaptureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode capture response: %v", err)
	}
	if resp.EventCount != 2 || resp.CaptureID == "" {
		t.Fatalf("unexpected capture response %+v", resp)
	}
	if captured != 1 {
		t.Fatalf("expected capture hook to run once got %d", captured)
	}

	cases := []struct {
		target string
		want   string
	}{
		{"/events", "e1,e2"},
		{"/queries/SimpleEventQuery/events?EQ_bizStep=shipping", "e1"},
		{"/events?EQ_bizStep=shipping%7Creceiving&orderBy=eventTime", "e2,e1"},
		{"/events?orderBy=eventTime&orderDirection=ASC&perPage=1", "e1"},
		{"/events?EQ_ILMD_urn:ns%23lot=L1", "e2"},
		{"/events?EQ_userID=alice&MATCH_epc=urn:epc:id:sgtin:*", "e1"},
		{"/events?EQ_action=DELETE", ""},
	}
	for _, tc := range cases {
		w := do(r, http.MethodGet, tc.target, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d: %s", tc.target, w.Code, w.Body.String())
		}

		var out models.QueryResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s: decode: %v", tc.target, err)
		}
		if out.QueryName != "SimpleEventQuery" {
			t.Fatalf("%s: unexpected query name %q", tc.target, out.QueryName)
		}
		ids := make([]string, len(out.EventList))
		for i, ev := range out.EventList {
			ids[i] = ev.EventID
		}
		if got := strings.Join(ids, ","); got != tc.want {
			t.Fatalf("%s: expected [%s] got [%s]", tc.target, tc.want, got)
		}
	}
}

func TestQuery_ParameterErrors(t *testing.T) {
	captured := 0
	r, _ := newRouter(t, &captured)

	cases := []string{
		"/events?FOO_bar=1",
		"/events?orderBy=bizStep",
		"/events?perPage=-1",
		"/events?eventType=NoSuchEvent",
		"/events?EQ_ILMD_nohash=1",
		"/events?EQ_bizStep=%zz",
	}
	for _, target := range cases {
		w := do(r, http.MethodGet, target, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", target, err)
		}
		if body["type"] != "epcisException:QueryParameterException" || body["title"] == "" {
			t.Fatalf("%s: unexpected body %v", target, body)
		}
	}
}

func TestCapture_InvalidPayload(t *testing.T) {
	captured := 0
	r, _ := newRouter(t, &captured)

	w := do(r, http.MethodPost, "/capture", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if captured != 0 {
		t.Fatal("capture hook ran for a rejected request")
	}
}

func TestCapture_EventWithoutAction(t *testing.T) {
	captured := 0
	r, _ := newRouter(t, &captured)

	body := `{"events": [
    {"eventID": "tx1", "type": "TransformationEvent", "eventTime": "2024-03-01T08:00:00Z", "action": "",
     "epcs": [{"type": "inputQuantity", "id": "urn:epc:class:lgtin:1", "quantity": 10}]}
  ]}`
	if w := do(r, http.MethodPost, "/capture", body); w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}

	w := do(r, http.MethodGet, "/events?eventType=TransformationEvent", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"tx1"`) || strings.Contains(w.Body.String(), `"action"`) {
		t.Fatalf("expected tx1 without an action got %s", w.Body.String())
	}

	if w := do(r, http.MethodGet, "/events?GT_quantity=5", ""); strings.Contains(w.Body.String(), `"tx1"`) {
		t.Fatalf("input quantity matched a quantity filter: %s", w.Body.String())
	}
}

func TestParseQuery_KeepsOrder(t *testing.T) {
	params, err := parseQuery("perPage=5&EQ_bizStep=a%7Cb&&EXISTS_errorDeclaration&GE_eventTime=2024-01-01T00%3A00%3A00%2B02%3A00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []query.Parameter{
		query.NewParameter("perPage", "5"),
		query.NewParameter("EQ_bizStep", "a", "b"),
		query.NewParameter("EXISTS_errorDeclaration", ""),
		query.NewParameter("GE_eventTime", "2024-01-01T00:00:00+02:00"),
	}
	if len(params) != len(want) {
		t.Fatalf("expected %d params got %d", len(want), len(params))
	}
	for i := range want {
		if params[i].Name != want[i].Name || strings.Join(params[i].Values, "|") != strings.Join(want[i].Values, "|") {
			t.Fatalf("param %d: expected %+v got %+v", i, want[i], params[i])
		}
	}
}
