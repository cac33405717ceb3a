package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElasticsearch struct {
	mu       sync.Mutex
	requests []recordedRequest
	response string
}

type recordedRequest struct {
	method string
	path   string
	body   string
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if f.response != "" {
		io.WriteString(w, f.response)
		return
	}
	io.WriteString(w, `{"result":"created"}`)
}

func newTestRepository(t *testing.T, es *fakeElasticsearch) *ElasticsearchRepository {
	t.Helper()
	server := httptest.NewServer(es)
	t.Cleanup(server.Close)

	repo, err := NewElasticsearchRepository(server.URL)
	require.NoError(t, err)
	return repo
}

func TestLogAccessIndexesDocument(t *testing.T) {
	es := &fakeElasticsearch{}
	repo := newTestRepository(t, es)

	log := AuditLog{
		ID:        "a1",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		TenantID:  "acme",
		AccountID: "u1",
		Action:    ActionLoginSuccess,
		Success:   true,
	}
	require.NoError(t, repo.LogAccess(context.Background(), log))

	require.Len(t, es.requests, 1)
	req := es.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/"+DefaultIndex+"/_doc/a1", req.path)

	var indexed AuditLog
	require.NoError(t, json.Unmarshal([]byte(req.body), &indexed))
	assert.Equal(t, log, indexed)
}

func TestQueryLogsScopesToTenant(t *testing.T) {
	es := &fakeElasticsearch{response: `{"hits":{"hits":[
		{"_source":{"id":"a2","tenant_id":"acme","action":"privilege granted","success":true}},
		{"_source":{"id":"a1","tenant_id":"acme","action":"password login success","success":true}}
	]}}`}
	repo := newTestRepository(t, es)

	logs, err := repo.QueryLogs(context.Background(), Query{TenantID: "acme", AccountID: "u1"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a2", logs[0].ID)
	assert.Equal(t, ActionPrivilegeGranted, logs[0].Action)

	require.Len(t, es.requests, 1)
	assert.True(t, strings.HasSuffix(es.requests[0].path, "/_search"))
	assert.Contains(t, es.requests[0].body, `"tenant_id":"acme"`)
	assert.Contains(t, es.requests[0].body, `"account_id":"u1"`)
}

func TestBuildSearchOmitsEmptyFilters(t *testing.T) {
	search := buildSearch(Query{TenantID: "acme"})
	must := search["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	assert.Len(t, must, 1)

	search = buildSearch(Query{
		TenantID: "acme",
		From:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Action:   ActionLoginFailure,
	})
	must = search["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	assert.Len(t, must, 3)
}

type recordingRepository struct {
	logs []AuditLog
}

func (r *recordingRepository) LogAccess(_ context.Context, log AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingRepository) QueryLogs(_ context.Context, _ Query) ([]AuditLog, error) {
	return r.logs, nil
}

func TestServiceFillsIDAndTimestamp(t *testing.T) {
	repo := &recordingRepository{}
	svc := NewService(repo)

	require.NoError(t, svc.LogAccess(context.Background(), AuditLog{TenantID: "acme", Action: ActionTokenInvalidated}))

	require.Len(t, repo.logs, 1)
	assert.NotEmpty(t, repo.logs[0].ID)
	assert.False(t, repo.logs[0].Timestamp.IsZero())
}

func TestDiscard(t *testing.T) {
	var svc Service = Discard{}
	assert.NoError(t, svc.LogAccess(context.Background(), AuditLog{TenantID: "acme"}))
	logs, err := svc.QueryLogs(context.Background(), Query{TenantID: "acme"})
	assert.NoError(t, err)
	assert.Empty(t, logs)
}
