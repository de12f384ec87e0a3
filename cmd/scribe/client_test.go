package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestClientSendsAPIKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[]}`))
	}))
	defer server.Close()

	c := newClient(server.URL, "sekret")
	if _, err := c.listJobs(""); err != nil {
		t.Fatalf("listJobs failed: %v", err)
	}
	if gotKey != "sekret" {
		t.Fatalf("X-API-Key = %q, want sekret", gotKey)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"job is being processed"}`))
	}))
	defer server.Close()

	c := newClient(server.URL, "")
	err := c.deleteJob("some-id")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); got != "job is being processed (409)" {
		t.Fatalf("unexpected error message %q", got)
	}
}

func TestClientSubmitSingleFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("server parse: %v", err)
		}
		if len(r.MultipartForm.File["file"]) != 1 {
			t.Fatalf("expected one file part")
		}
		if r.FormValue("diarize") != "true" {
			t.Fatalf("diarize field missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"abc","state":"queued","filename":"a.mp3"}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	c := newClient(server.URL, "")
	accepted, err := c.submit([]string{path}, submitOptions{diarize: true})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(accepted) != 1 || accepted[0].ID != "abc" {
		t.Fatalf("unexpected response %+v", accepted)
	}
}
