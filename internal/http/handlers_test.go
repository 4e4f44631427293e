package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rarediag/internal/core"
	"rarediag/internal/db"
	"rarediag/internal/llm"
	"rarediag/internal/registry"
	"rarediag/pkg"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(context.Context, []llm.Message, llm.Options) (string, error) {
	s.calls++
	return s.reply, s.err
}

type stubRegistry struct{}

func (stubRegistry) Lookup(context.Context, string) (*registry.Label, error) { return nil, nil }

type stubDiseases struct {
	byName map[string]*pkg.Disease
	err    error
}

func (s *stubDiseases) SuggestDiseases(context.Context, string) ([]string, error) {
	return nil, s.err
}

func (s *stubDiseases) FindDisease(_ context.Context, name string) (*pkg.Disease, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("disease %q: %w", name, pkg.ErrNotFound)
	}
	return d, nil
}

func (s *stubDiseases) SetDiseaseDescription(_ context.Context, d *pkg.Disease, text string) error {
	d.Description = text
	return nil
}

type stubDrugs struct {
	rows []pkg.DrugRow
}

func (s *stubDrugs) SuggestDrugs(context.Context, string) ([]string, error) { return nil, nil }

func (s *stubDrugs) FindDrugs(_ context.Context, name string) ([]pkg.DrugRow, error) {
	var out []pkg.DrugRow
	for _, r := range s.rows {
		if strings.Contains(r.DrugName, name) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, pkg.ErrNotFound
	}
	return out, nil
}

func (s *stubDrugs) SetDrugOverview(context.Context, string, string) (int64, error) { return 0, nil }

func newTestServer(diseases core.DiseaseStore, drugs core.DrugStore, client llm.Client, sink core.RecordSink) *Server {
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()
	return NewServer(
		core.NewDiseaseService(diseases, client, log),
		core.NewDrugService(drugs, stubRegistry{}, log),
		core.NewDiagnosisService(client, sink, log),
		fakeDB{},
		log,
		[]string{"*"},
	)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, &stubLLM{}, nil)
	w := do(t, srv, "GET", "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"message":"Medical API is running"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()
	srv := NewServer(nil, nil, nil, fakeDB{err: errors.New("down")}, log, nil)

	w := do(t, srv, "GET", "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	srv = NewServer(nil, nil, nil, fakeDB{}, log, nil)
	if w := do(t, srv, "GET", "/readyz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSuggestions_EmptyQuery(t *testing.T) {
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, &stubLLM{}, nil)
	for _, target := range []string{"/api/disease-description?q=", "/api/drug-info?q=%20%20", "/api/drug-info"} {
		w := do(t, srv, "GET", target, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Query parameter 'q' cannot be empty") {
			t.Errorf("%s: unexpected body %s", target, w.Body.String())
		}
	}
}

func TestDiseaseSuggestions_StoreError(t *testing.T) {
	srv := newTestServer(&stubDiseases{err: errors.New("connection refused")}, &stubDrugs{}, &stubLLM{}, nil)
	w := do(t, srv, "GET", "/api/disease-description?q=fab", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("expected error detail, got %s", w.Body.String())
	}
}

// End-to-end through the SQL repository.
func TestDrugSuggestions_EndToEnd(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT DISTINCT drug_name FROM fda_drugs").
		WithArgs("%ASP%", db.SuggestionLimit).
		WillReturnRows(sqlmock.NewRows([]string{"drug_name"}).AddRow("ASPIRIN"))
	mock.ExpectCommit()

	repo := db.NewRepository(db.NewGate(conn), nil)
	srv := newTestServer(repo, repo, &stubLLM{}, nil)

	w := do(t, srv, "GET", "/api/drug-info?q=asp", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"suggestions":["ASPIRIN"]}` {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// End-to-end through the SQL repository.
func TestDiseaseDescription_NotFoundEndToEnd(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, disease, description FROM diseases").
		WithArgs("Nonexistent").
		WillReturnRows(sqlmock.NewRows([]string{"id", "disease", "description"}))
	mock.ExpectRollback()

	repo := db.NewRepository(db.NewGate(conn), nil)
	client := &stubLLM{}
	srv := newTestServer(repo, repo, client, nil)

	w := do(t, srv, "POST", "/api/disease-description", `{"disease_name":"Nonexistent"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if client.calls != 0 {
		t.Error("LLM must not be called for unknown diseases")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDiseaseDescription_Generated(t *testing.T) {
	store := &stubDiseases{byName: map[string]*pkg.Disease{"Fabry": {ID: 1, Name: "Fabry"}}}
	srv := newTestServer(store, &stubDrugs{}, &stubLLM{reply: "<think>x</think>Fabry text"}, nil)

	w := do(t, srv, "POST", "/api/disease-description", `{"disease_name":"  Fabry "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`"success":true`, `"disease":"Fabry"`, `"description":"Fabry text"`, "fetched and stored"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}
}

func TestDiseaseDescription_Validation(t *testing.T) {
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, &stubLLM{}, nil)
	for _, body := range []string{`{"disease_name":"   "}`, `not json`, `{}`} {
		if w := do(t, srv, "POST", "/api/disease-description", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestDiseaseDescription_LLMFailure(t *testing.T) {
	store := &stubDiseases{byName: map[string]*pkg.Disease{"Fabry": {ID: 1, Name: "Fabry"}}}
	srv := newTestServer(store, &stubDrugs{}, &stubLLM{err: errors.New("quota exceeded")}, nil)

	w := do(t, srv, "POST", "/api/disease-description", `{"disease_name":"Fabry"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "quota exceeded") {
		t.Errorf("expected error detail, got %s", w.Body.String())
	}
}

func TestDrugInfo_UpperCasesAndMaps404(t *testing.T) {
	drugs := &stubDrugs{rows: []pkg.DrugRow{
		{DrugName: "ASPIRIN", Sponsor: "BAYER", Overview: "Pain reliever"},
		{DrugName: "ASPIRIN", Sponsor: "ACME"},
	}}
	srv := newTestServer(&stubDiseases{}, drugs, &stubLLM{}, nil)

	w := do(t, srv, "POST", "/api/drug-info", `{"drug_name":"aspirin"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	want := `{"description":"Pain reliever","drug_name":"ASPIRIN","manufacturers":["ACME","BAYER"],"success":true}`
	if w.Body.String() != want {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	w = do(t, srv, "POST", "/api/drug-info", `{"drug_name":"unknown"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Drug 'UNKNOWN' not found in local database.") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestDiagnose_Validation(t *testing.T) {
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, &stubLLM{}, nil)
	for _, body := range []string{"", "   ", "{}", "null", "[1,2]", "{broken", `{"a":1} xyz`, `{"a":1}{"b":2}`} {
		if w := do(t, srv, "POST", "/api/diagnose", body); w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestDiagnose_Success(t *testing.T) {
	client := &stubLLM{reply: `<think>...</think>{"patient_details":{"name":"Jane"},"top_rare_diseases":[]}`}
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, client, nil)

	w := do(t, srv, "POST", "/api/diagnose", `{"name":"Jane","age":34}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := `{"data":{"patient_details":{"name":"Jane"},"top_rare_diseases":[]},"success":true}`
	if w.Body.String() != want {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestDiagnose_ExtractionFailureReturnsRaw(t *testing.T) {
	client := &stubLLM{reply: "I cannot answer that."}
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, client, nil)

	w := do(t, srv, "POST", "/api/diagnose", `{"name":"Jane"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"raw_response":"I cannot answer that."`) || !strings.Contains(body, `"success":false`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestDiagnose_BodyTooLarge(t *testing.T) {
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, &stubLLM{}, nil)
	big := `{"notes":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	if w := do(t, srv, "POST", "/api/diagnose", big); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestDiagnose_TrailingDataNotSent(t *testing.T) {
	client := &stubLLM{reply: `{"patient_details":{},"top_rare_diseases":[]}`}
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, client, nil)

	w := do(t, srv, "POST", "/api/diagnose", `{"name":"Jane"} xyz`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if client.calls != 0 {
		t.Error("LLM must not be called for malformed bodies")
	}
}

func TestInvalidInputMessages(t *testing.T) {
	srv := newTestServer(&stubDiseases{}, &stubDrugs{}, &stubLLM{}, nil)
	cases := []struct {
		target, body, want string
	}{
		{"/api/disease-description", `{"disease_name":" "}`, `{"message":"Disease name cannot be empty","success":false}`},
		{"/api/drug-info", `{"drug_name":""}`, `{"message":"Drug name cannot be empty","success":false}`},
		{"/api/diagnose", `{}`, `{"message":"No patient data provided","success":false}`},
	}
	for _, tc := range cases {
		w := do(t, srv, "POST", tc.target, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.target, w.Code)
		}
		if w.Body.String() != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.target, tc.want, w.Body.String())
		}
	}
}
