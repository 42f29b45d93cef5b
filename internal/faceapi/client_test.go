package faceapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDetectReturnsEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect_face" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["image"] == "" {
			t.Fatalf("missing image field")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"face_detected": true,
			"faces_count":   1,
			"embedding":     []float64{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	det, err := client.Detect(context.Background(), "ZmFrZQ==")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(det.Embedding) != 3 || det.FacesCount != 1 {
		t.Fatalf("unexpected detection: %+v", det)
	}
}

func TestDetectNoFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":       false,
			"face_detected": false,
			"error":         "Face could not be detected",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Detect(context.Background(), "ZmFrZQ==")
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestVerifyMatchDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify_faces" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":           true,
			"is_match":          true,
			"cosine_similarity": 0.82,
			"confidence":        0.82,
			"threshold_used":    0.6,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	match, err := client.Verify(context.Background(), []float64{1, 2}, []float64{1, 2.1})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !match.IsMatch || match.Confidence != 0.82 {
		t.Fatalf("unexpected match: %+v", match)
	}
}

func TestUnreachableServiceIsTyped(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 100*time.Millisecond)

	if _, err := client.Detect(context.Background(), "ZmFrZQ=="); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from detect, got %v", err)
	}
	if err := client.Health(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from health, got %v", err)
	}
}
