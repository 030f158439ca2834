package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dalgoctl/internal/types"
)

func TestGetTableColumnsEscapesPathAndSendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/warehouse/table_columns/staging/raw%20orders" {
			t.Errorf("unexpected path %q", r.URL.EscapedPath())
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected request id header")
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"name": "id"}, {"name": "amount", "data_type": "numeric"}})
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL+"/api", "token")
	cols, err := c.GetTableColumns(context.Background(), "staging", "raw orders")
	if err != nil {
		t.Fatalf("GetTableColumns: %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "id" || cols[1].DataType != "numeric" {
		t.Fatalf("unexpected columns: %#v", cols)
	}
}

func TestGetOperationDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/transform/dbt_project/model/operations/op-1/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"config":{"config":{"columns":{"a":"b"},"source_columns":["a","c"]},"input_models":[{"uuid":"in-1"}]}}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "token")
	data, err := c.GetOperation(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if data.Config.Config.Columns["a"] != "b" || len(data.Config.Config.SourceColumns) != 2 {
		t.Fatalf("unexpected config: %#v", data.Config.Config)
	}
	if len(data.Config.InputModels) != 1 || data.Config.InputModels[0].UUID != "in-1" {
		t.Fatalf("unexpected input models: %#v", data.Config.InputModels)
	}
}

func TestCreateAndUpdateOperation(t *testing.T) {
	var calls []string
	var bodies []types.OperationPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		var payload types.OperationPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		bodies = append(bodies, payload)
		_ = json.NewEncoder(w).Encode(types.OperationNode{ID: "op-9", OutputCols: []string{"b"}})
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "token")
	payload := types.OperationPayload{
		OpType:        "renamecolumns",
		SourceColumns: []string{"a"},
		OtherInputs:   []any{},
		Config:        types.OperationColumns{Columns: map[string]string{"a": "b"}},
	}
	node, err := c.CreateOperation(context.Background(), payload)
	if err != nil {
		t.Fatalf("CreateOperation: %v", err)
	}
	if node.ID != "op-9" {
		t.Fatalf("unexpected node: %#v", node)
	}
	if _, err := c.UpdateOperation(context.Background(), "op-9", payload); err != nil {
		t.Fatalf("UpdateOperation: %v", err)
	}
	if len(calls) != 2 || calls[0] != "POST /transform/dbt_project/model/" || calls[1] != "PUT /transform/dbt_project/model/operations/op-9/" {
		t.Fatalf("unexpected calls: %v", calls)
	}
	if bodies[0].Config.Columns["a"] != "b" || bodies[0].OpType != "renamecolumns" {
		t.Fatalf("unexpected body: %#v", bodies[0])
	}
}

func TestAPIErrorUsesBackendDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"column a does not exist"}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "token")
	_, err := c.CreateOperation(context.Background(), types.OperationPayload{OpType: "renamecolumns"})
	apiErr := AsAPIError(err)
	if apiErr == nil {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "column a does not exist" {
		t.Fatalf("unexpected api error: %#v", apiErr)
	}
	if UserMessage(err) != "column a does not exist" {
		t.Fatalf("unexpected user message %q", UserMessage(err))
	}
}

func TestAPIErrorFlattensValidationDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"},{"msg":"value is not a valid uuid"}]}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "token")
	_, err := c.GetOperation(context.Background(), "op-1")
	if got := UserMessage(err); got != "field required; value is not a valid uuid" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAPIErrorFallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "token")
	err := c.MarkAllAsRead(context.Background())
	apiErr := AsAPIError(err)
	if apiErr == nil || apiErr.Message != "502 Bad Gateway" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOperationPathRequiresNodeID(t *testing.T) {
	c := NewWithBaseURL("http://127.0.0.1:1", "token")
	if _, err := c.GetOperation(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank node id")
	}
}
