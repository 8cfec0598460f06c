package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/beltledger/internal/config"
	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/ledger"
	"github.com/vanshika/beltledger/internal/metadata"
	"github.com/vanshika/beltledger/internal/metrics"
	"github.com/vanshika/beltledger/internal/service"
)

type forwardCall struct {
	method string
	path   string
	query  url.Values
	body   string
}

type stubProxy struct {
	calls []forwardCall
	resp  ledger.Response
	err   error
}

func (s *stubProxy) Forward(_ context.Context, method, path string, query url.Values, body []byte) (ledger.Response, error) {
	s.calls = append(s.calls, forwardCall{method: method, path: path, query: query, body: string(body)})
	return s.resp, s.err
}

type stubMetadata struct {
	saved   []domain.ProfileMetadata
	records map[string]domain.ProfileMetadata
	err     error
}

func (s *stubMetadata) Get(_ context.Context, id string) (domain.ProfileMetadata, error) {
	if md, ok := s.records[id]; ok {
		return md, nil
	}
	return domain.ProfileMetadata{ProfileID: id}, nil
}

func (s *stubMetadata) Upsert(_ context.Context, md domain.ProfileMetadata) (time.Time, error) {
	if s.err != nil {
		return time.Time{}, s.err
	}
	s.saved = append(s.saved, md)
	return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC), nil
}

type stubLineage struct {
	steps []domain.LineageStep
	err   error
}

func (s *stubLineage) Lineage(_ context.Context, id string, _ int) ([]domain.LineageStep, error) {
	return s.steps, s.err
}

func (s *stubLineage) Students(context.Context, string) ([]domain.LineageStep, error) {
	return s.steps, s.err
}

func (s *stubLineage) PendingPromotions(_ context.Context, id string) ([]domain.Promotion, error) {
	return []domain.Promotion{{ID: "p-1", AchievedByProfileID: id}}, s.err
}

type stubNames map[string]string

func (n stubNames) Name(_ context.Context, id string) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	proxy    *stubProxy
	metadata *stubMetadata
	lineage  *stubLineage
	metrics  *metrics.Metrics
	handler  http.Handler
}

func newFixture(health HealthService) *fixture {
	f := &fixture{
		proxy:    &stubProxy{resp: ledger.Response{StatusCode: http.StatusOK, ContentType: "application/json", Body: []byte(`{}`)}},
		metadata: &stubMetadata{records: map[string]domain.ProfileMetadata{}},
		lineage:  &stubLineage{},
		metrics:  metrics.New(),
	}
	api := NewAPIHandlers(testLogger(), APIDependencies{
		Ledger:   f.proxy,
		Metadata: f.metadata,
		Lineage:  f.lineage,
		Names:    stubNames{"a.1": "Helio"},
	})
	f.handler = NewRouter(testLogger(), RouterDependencies{
		Health:         health,
		API:            api,
		Metrics:        f.metrics,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	return f
}

func (f *fixture) do(method, target string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestProxyProfileMirrorsStatus(t *testing.T) {
	f := newFixture(nil)
	f.proxy.resp = ledger.Response{StatusCode: http.StatusNotFound, ContentType: "text/plain", Body: []byte("missing")}

	rec := f.do(http.MethodGet, "/api/practitioner/abc.0102", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "missing", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	require.Len(t, f.proxy.calls, 1)
	assert.Equal(t, "/practitioner/abc.0102", f.proxy.calls[0].path)
	assert.Equal(t, http.MethodGet, f.proxy.calls[0].method)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestProxyListingPassesQuery(t *testing.T) {
	f := newFixture(nil)
	f.proxy.resp.Body = []byte(`[{"belt":"Blue"}]`)

	rec := f.do(http.MethodGet, "/api/belts?limit=10&belt=Blue&belt=Purple", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"belt":"Blue"}]`, rec.Body.String())

	require.Len(t, f.proxy.calls, 1)
	assert.Equal(t, "/belts", f.proxy.calls[0].path)
	assert.Equal(t, []string{"Blue", "Purple"}, f.proxy.calls[0].query["belt"])

	rec = f.do(http.MethodGet, "/api/profiles/count", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/profiles/count", f.proxy.calls[1].path)
}

func TestProxyTransportFailure(t *testing.T) {
	f := newFixture(nil)
	f.proxy.err = errors.New("dial tcp: refused")

	rec := f.do(http.MethodGet, "/api/promotions", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledger backend unavailable")
}

func TestBuildTxForwardsBody(t *testing.T) {
	f := newFixture(nil)
	f.proxy.resp.Body = []byte(`"84a300"`)

	payload := `{"action":{"tag":"AcceptPromotionAction","promotion_id":"p"},"userAddresses":{"usedAddresses":[],"changeAddress":""}}`
	rec := f.do(http.MethodPost, "/api/build-tx", payload)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"84a300"`, rec.Body.String())
	require.Len(t, f.proxy.calls, 1)
	assert.Equal(t, payload, f.proxy.calls[0].body)

	rec = f.do(http.MethodPost, "/api/build-tx", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.proxy.calls, 1)
}

func TestSubmitTxValidatesPayload(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(http.MethodPost, "/api/submit-tx", `{"tx_unsigned":"84a3"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.proxy.calls)

	f.proxy.resp.Body = []byte(`{"id":"tx-1"}`)
	rec = f.do(http.MethodPost, "/api/submit-tx", `{"tx_unsigned":"84a3","tx_wit":"a100"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"tx-1"}`, rec.Body.String())
	assert.Equal(t, "/submit-tx", f.proxy.calls[0].path)
}

func TestProfileMetadataRoutes(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(http.MethodGet, "/api/profile-metadata?id=abc.01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"profile_id":"abc.01"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/profile-metadata", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/profile-metadata", `{"profile_id":"abc.01","location":"Lisbon"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"updated_at":"2025-02-03T04:05:06Z"}`, rec.Body.String())
	require.Len(t, f.metadata.saved, 1)
	assert.Equal(t, "Lisbon", f.metadata.saved[0].Location)

	rec = f.do(http.MethodPut, "/api/profile-metadata", `{"profile_id":"abc.01","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.metadata.err = metadata.ErrInvalid
	rec = f.do(http.MethodPut, "/api/profile-metadata", `{"profile_id":"abc.01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/profile-metadata", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLineageRoutes(t *testing.T) {
	f := newFixture(nil)
	f.lineage.steps = []domain.LineageStep{{ProfileID: "s.1", Belt: domain.BeltBlue, AwardedBy: "m.1"}}

	rec := f.do(http.MethodGet, "/api/lineage/s.1?depth=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ProfileID string               `json:"profile_id"`
		Lineage   []domain.LineageStep `json:"lineage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s.1", body.ProfileID)
	assert.Equal(t, f.lineage.steps, body.Lineage)

	rec = f.do(http.MethodGet, "/api/lineage/m.1/students", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"students"`)

	rec = f.do(http.MethodGet, "/api/lineage/s.1/pending", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"p-1"`)

	f.lineage.err = service.ErrInvalidProfileID
	rec = f.do(http.MethodGet, "/api/lineage/bad", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.lineage.err = errors.New("graph down")
	rec = f.do(http.MethodGet, "/api/lineage/s.1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProfileNameRoute(t *testing.T) {
	f := newFixture(nil)
	rec := f.do(http.MethodGet, "/api/profile-name/a.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"a.1","name":"Helio"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	f := newFixture(Checks{"graph": ProbeFunc(func(context.Context) error { return nil })})
	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f = newFixture(Checks{
		"graph":    ProbeFunc(func(context.Context) error { return errors.New("unreachable") }),
		"metadata": nil,
	})
	rec = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "graph: unreachable")
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	f := newFixture(nil)
	f.do(http.MethodGet, "/api/belts", "")

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `beltledger_http_requests_total{method="GET",route="/api/belts",status="200"} 1`)
}

func TestRequestIDIsPreserved(t *testing.T) {
	f := newFixture(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	f := newFixture(nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/belts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/belts", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(nil)
	rec := f.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestServerServeAndShutdown(t *testing.T) {
	f := newFixture(nil)
	srv := New(testLogger(), config.HTTPConfig{ReadTimeout: time.Second, WriteTimeout: time.Second}, f.handler)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, buf.String(), `"status":"ok"`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
