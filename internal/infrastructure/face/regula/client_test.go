package regula

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

func matchServer(t *testing.T, similarity float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/match" {
			t.Errorf("expected path /api/match, got %s", r.URL.Path)
		}
		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Images) != 2 {
			t.Errorf("expected 2 images, got %d", len(req.Images))
		}
		for _, img := range req.Images {
			if _, err := base64.StdEncoding.DecodeString(img.Data); err != nil {
				t.Errorf("image data is not base64: %v", err)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"similarity": similarity}},
		})
	}))
}

func TestMatchFacesAboveThreshold(t *testing.T) {
	server := matchServer(t, 0.92)
	defer server.Close()

	client := NewClient(server.URL, 0.75, nil)
	match, err := client.MatchFaces(context.Background(), []byte("doc"), []byte("selfie"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !match.Checked || !match.Matched {
		t.Fatalf("expected matched result, got %+v", match)
	}
	if match.Similarity != 0.92 {
		t.Fatalf("expected similarity 0.92, got %v", match.Similarity)
	}
}

func TestMatchFacesBelowThreshold(t *testing.T) {
	server := matchServer(t, 0.41)
	defer server.Close()

	client := NewClient(server.URL, 0.75, nil)
	match, err := client.MatchFaces(context.Background(), []byte("doc"), []byte("selfie"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.Matched {
		t.Fatalf("expected mismatch, got %+v", match)
	}
	if match.Message == "" {
		t.Fatal("mismatch must carry an explanatory message")
	}
}

func TestMatchFacesServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0.75, nil)
	_, err := client.MatchFaces(context.Background(), []byte("doc"), []byte("selfie"))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestMatchFacesBadRequestIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no face detected", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0.75, nil)
	_, err := client.MatchFaces(context.Background(), []byte("doc"), []byte("selfie"))
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not be classified temporary: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/healthz" {
			t.Errorf("expected path /api/healthz, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
