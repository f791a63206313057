package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMeshy_CreateModelJob(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]string{"result": "task-123"})
	}))
	defer srv.Close()

	m := NewMeshyWithBaseURL("test-key", srv.URL)

	job, err := m.CreateModelJob(context.Background(), "a gnarled oak staff")
	if err != nil {
		t.Fatalf("CreateModelJob() error = %v", err)
	}

	if gotPath != "/openapi/v2/text-to-3d" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["mode"] != "preview" || gotBody["prompt"] != "a gnarled oak staff" {
		t.Errorf("request body = %v", gotBody)
	}
	if job.JobID != "task-123" {
		t.Errorf("JobID = %q, want task-123", job.JobID)
	}
	if job.Status != "pending" {
		t.Errorf("Status = %q, want pending", job.Status)
	}
	if job.Credits != meshyJobCredits {
		t.Errorf("Credits = %d, want %d", job.Credits, meshyJobCredits)
	}
}

func TestMeshy_CreateModelJob_MissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	m := NewMeshyWithBaseURL("k", srv.URL)

	if _, err := m.CreateModelJob(context.Background(), "x"); err == nil {
		t.Fatal("expected error when response carries no task id")
	}
}

func TestMeshy_GetModelJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi/v2/text-to-3d/task-123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":     "task-123",
			"status": "SUCCEEDED",
		})
	}))
	defer srv.Close()

	m := NewMeshyWithBaseURL("k", srv.URL)

	job, err := m.GetModelJob(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("GetModelJob() error = %v", err)
	}
	if job.JobID != "task-123" || job.Status != "SUCCEEDED" {
		t.Errorf("job = %+v", job)
	}
	if job.Credits != 0 {
		t.Errorf("Credits = %d, want 0 (cost ledgered at creation)", job.Credits)
	}
}

func TestMeshy_ServerErrorRetriesThenFails(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewMeshyWithBaseURL("k", srv.URL)

	if _, err := m.CreateModelJob(context.Background(), "x"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != maxRetryAttempts+1 {
		t.Errorf("attempts = %d, want %d", attempts, maxRetryAttempts+1)
	}
}

func TestMeshy_Name(t *testing.T) {
	if got := NewMeshy("k").Name(); got != NameMeshy {
		t.Errorf("Name() = %q, want %q", got, NameMeshy)
	}
}
