package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/buckets/pickarry/objects" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Fatalf("missing auth header")
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("multipart file: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"key":"abc.jpg"}`))
	}))
	defer srv.Close()

	c := NewClient(config.StorageConfig{
		Endpoint: srv.URL, APIKey: "k", Bucket: "pickarry",
		PublicBaseURL: "https://cdn.example.com/",
	})

	url, err := c.Upload(context.Background(), "photo.JPG", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example.com/pickarry/abc.jpg" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestRemoveMissingObjectOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(config.StorageConfig{Endpoint: srv.URL, APIKey: "k", Bucket: "pickarry"})
	if err := c.Remove(context.Background(), "gone.jpg"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}
