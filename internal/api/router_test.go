package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"route-scheduling-service/internal/adapters/catalog"
	"route-scheduling-service/internal/adapters/events"
	"route-scheduling-service/internal/adapters/mock"
	"route-scheduling-service/internal/adapters/repositories"
	"route-scheduling-service/internal/adapters/visibility"
	"route-scheduling-service/internal/api/dto"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/services"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const hubAddress = "100 Hub Rd, Phoenix, AZ 85001"

type testServer struct {
	handler http.Handler
	matrix  *mock.MatrixProvider
	tasks   *repositories.MemoryTaskRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	geocoder := mock.NewGeocoder(map[string]domain.Coordinates{
		hubAddress:                   {Lon: -112.0740, Lat: 33.4484},
		"1 A St, Phoenix, AZ 85004":  {Lon: -112.0700, Lat: 33.4500},
		"2 B St, Phoenix, AZ 85008":  {Lon: -112.0000, Lat: 33.5000},
		"3 C St, Phoenix, AZ 85004":  {Lon: -112.0650, Lat: 33.4550},
		"9 Far Rd, Tucson, AZ 85701": {Lon: -110.9747, Lat: 32.2226},
	})
	matrix := mock.NewMatrixProvider()
	optimizer := services.NewRouteOptimizer(geocoder, matrix, &mock.GeometryProvider{}, 0)

	tpl, err := catalog.New(domain.TaskTemplate{
		Name:         "delivery",
		TitlePattern: "Deliver to {customerName}",
		Payment:      domain.PaymentRule{Type: domain.PaymentFixed, BaseAmount: 30},
		Scheduling:   domain.SchedulingRule{RelativeTo: domain.AnchorManual},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	orders := repositories.NewMemoryOrderRepository(
		domain.Order{ID: "ORD-A", CustomerName: "Ana", Total: 100},
		domain.Order{ID: "ORD-B", CustomerName: "Ben", Total: 250},
		domain.Order{ID: "ORD-C", CustomerName: "Cy", Total: 50},
	)
	tasks := repositories.NewMemoryTaskRepository()

	h := NewRouter(Deps{
		Logger:     zerolog.New(io.Discard),
		Optimizer:  optimizer,
		Drivers:    services.NewMultiDriverOptimizer(optimizer, services.NewGeoClusterer(rand.New(rand.NewSource(1)))),
		Overlay:    services.NewVisibilityOverlay(visibility.NewMemoryStore()),
		Converter:  services.NewRouteToTaskConverter(orders, services.NewTemplateEngine(time.UTC)),
		Batch:      services.NewBatchTaskCreator(tasks, events.LogPublisher{}),
		Catalog:    tpl,
		HubAddress: hubAddress,
	})
	return &testServer{handler: h, matrix: matrix, tasks: tasks}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

const threePointsJSON = `[
	{"id":"A","orderId":"ORD-A","customerName":"Ana","street":"1 A St","city":"Phoenix","state":"AZ","zipCode":"85004"},
	{"id":"B","orderId":"ORD-B","customerName":"Ben","street":"2 B St","city":"Phoenix","state":"AZ","zipCode":"85008"},
	{"id":"C","orderId":"ORD-C","customerName":"Cy","street":"3 C St","city":"Phoenix","state":"AZ","zipCode":"85004"}
]`

func TestOptimizeRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/routes/optimize",
		`{"points":`+threePointsJSON+`,"startTime":"2026-03-14T08:00:00Z","returnToStart":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	route := decode[dto.Route](t, rec)
	if got := strings.Join(route.DeliveryOrder, ","); got != "A,C,B" {
		t.Fatalf("expected order A,C,B, got %s", got)
	}
	if route.StartAddress != hubAddress {
		t.Fatalf("expected default hub as start, got %q", route.StartAddress)
	}
	if len(route.TimeSlots) != 3 || !route.TimeSlots[0].Start.Equal(time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected slots %+v", route.TimeSlots)
	}
	if len(route.Geometry) == 0 {
		t.Fatalf("expected geometry in response")
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/visibility/hidden?date=2026-03-14", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected req-42, got %q", got)
	}
}

func TestRequestDecodingRules(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown field", http.MethodPost, "/routes/optimize", `{"points":` + threePointsJSON + `,"speed":3}`, http.StatusBadRequest},
		{"two objects", http.MethodPost, "/routes/optimize", `{"points":` + threePointsJSON + `}{}`, http.StatusBadRequest},
		{"no points", http.MethodPost, "/routes/optimize", `{"points":[]}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/routes/optimize", "", http.StatusMethodNotAllowed},
		{"driver count", http.MethodPost, "/routes/optimize-drivers", `{"points":` + threePointsJSON + `,"driverCount":11}`, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/visibility/hidden?date=tomorrow", "", http.StatusBadRequest},
		{"bad granularity", http.MethodPost, "/tasks/convert", `{"routes":[{}],"options":{"granularity":"weekly"}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := s.do(t, tc.method, tc.path, tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}

	rec := s.do(t, http.MethodDelete, "/tasks/batch", "")
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("expected Allow: POST, got %q", allow)
	}
}

func TestServiceErrorStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/routes/optimize",
		`{"points":[{"id":"X","street":"1 Nowhere","city":"Mesa","state":"AZ","zipCode":"85201"}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("all geocodes failing: expected 422, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/routes/optimize",
		`{"points":[{"id":"T","street":"9 Far Rd","city":"Tucson","state":"AZ","zipCode":"85701"}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("implausible leg: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	s.matrix.Err = errors.New("provider down")
	rec = s.do(t, http.MethodPost, "/routes/optimize", `{"points":`+threePointsJSON+`}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("matrix failure: expected 502, got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "provider down") {
		t.Fatalf("upstream error details must not leak: %s", body)
	}
}

func TestOptimizeDrivers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/routes/optimize-drivers",
		`{"points":`+threePointsJSON+`,"driverCount":2,"startTime":"2026-03-14T08:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	res := decode[dto.MultiRoute](t, rec)
	if len(res.Routes) != 2 || res.Stats.TotalStops != 3 || len(res.Assignments) != 3 {
		t.Fatalf("unexpected result %+v", res.Stats)
	}

	body, _ := json.Marshal(dto.RebalanceRequest{Routes: res.Routes})
	rec = s.do(t, http.MethodPost, "/routes/rebalance", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("rebalance: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if again := decode[dto.MultiRoute](t, rec); again.Stats.TotalStops != 3 {
		t.Fatalf("rebalance lost stops: %+v", again.Stats)
	}
}

func TestVisibilityFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/visibility/hide", `{"date":"2026-03-14","pointIds":["B"],"reason":"customer_request"}`)
	if rec.Code != http.StatusOK || decode[dto.VisibilityChangeResponse](t, rec).Changed != 1 {
		t.Fatalf("hide: unexpected response %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/visibility/hidden?date=2026-03-14", "")
	hidden := decode[dto.HiddenResponse](t, rec)
	if len(hidden.Hidden) != 1 || hidden.Hidden[0].Reason != domain.HideReasonCustomerRequest {
		t.Fatalf("unexpected hidden list %+v", hidden)
	}

	rec = s.do(t, http.MethodPost, "/routes/optimize", `{"points":`+threePointsJSON+`,"startTime":"2026-03-14T08:00:00Z"}`)
	route := decode[dto.Route](t, rec)

	body, _ := json.Marshal(dto.ApplyVisibilityRequest{Date: "2026-03-14", Route: route})
	rec = s.do(t, http.MethodPost, "/visibility/apply", string(body))
	view := decode[dto.RouteView](t, rec)
	if view.ActiveCount != 2 || view.HiddenCount != 1 || view.HiddenDeliveries[0].Point.ID != "B" {
		t.Fatalf("unexpected view %+v", view)
	}

	rec = s.do(t, http.MethodPost, "/visibility/templates", `{"name":"east","criteria":{"zipCodes":["85008"]}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save template: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/visibility/templates/apply", `{"name":"east","date":"2026-03-15","points":`+threePointsJSON+`}`)
	if applied := decode[dto.CriteriaResponse](t, rec); applied.Hidden != 1 || applied.Matched[0] != "B" {
		t.Fatalf("unexpected template application %+v", applied)
	}

	rec = s.do(t, http.MethodDelete, "/visibility/templates?name=missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing template: expected 404, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/visibility/show-all", `{"date":"2026-03-14"}`)
	if decode[dto.VisibilityChangeResponse](t, rec).Changed != 1 {
		t.Fatalf("show-all: expected 1 restored")
	}
}

func TestConvertAndBatch(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/routes/optimize", `{"points":`+threePointsJSON+`,"startTime":"2026-03-14T08:00:00Z"}`)
	route := decode[dto.Route](t, rec)

	body, _ := json.Marshal(dto.ConvertRequest{Route: &route, Template: "missing"})
	if rec = s.do(t, http.MethodPost, "/tasks/convert", string(body)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown template: expected 404, got %d", rec.Code)
	}

	body, _ = json.Marshal(dto.ConvertRequest{Route: &route, Template: "delivery"})
	rec = s.do(t, http.MethodPost, "/tasks/convert", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("convert: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	converted := decode[dto.ConvertResponse](t, rec)
	if len(converted.Tasks) != 3 || converted.Tasks[0].Title != "Deliver to Ana" {
		t.Fatalf("unexpected tasks %+v", converted.Tasks)
	}

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(dto.BatchRequest{Tasks: converted.Tasks, MaxConcurrency: 2})
	rec = s.do(t, http.MethodPost, "/tasks/batch", buf.String())
	if rec.Code != http.StatusCreated {
		t.Fatalf("batch: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	batch := decode[dto.BatchResponse](t, rec)
	if len(batch.Created) != 3 || batch.Created[0].ID == "" || len(s.tasks.Tasks()) != 3 {
		t.Fatalf("unexpected batch result %+v", batch)
	}

	rec = s.do(t, http.MethodGet, "/tasks/templates", "")
	if names := decode[dto.TaskTemplatesResponse](t, rec); len(names.Templates) != 1 || names.Templates[0] != "delivery" {
		t.Fatalf("unexpected template names %+v", names)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	s.do(t, http.MethodGet, "/visibility/hidden?date=2026-03-14", "")

	rec := s.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/visibility/hidden",status="200"}`) {
		t.Fatalf("expected request counter in metrics output")
	}
}
