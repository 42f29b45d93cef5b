// Package faceapi is the client for the external face detection and matching
// service. The service is a black box: it receives base64 frames or embedding
// vectors and answers with detection/match decisions. Every response is
// validated at this boundary and converted into typed results so the rest of
// the application never inspects raw wire shapes.
package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNoFaceDetected is returned when the service could not find a face
	// in the submitted frame. Recoverable: the capture flow returns to Ready.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrUnavailable is returned when the service cannot be reached or
	// answers with a transport-level failure. Never bypasses gating.
	ErrUnavailable = errors.New("face service unavailable")
)

// Detector extracts a face embedding from a captured frame.
type Detector interface {
	Detect(ctx context.Context, imageBase64 string) (Detection, error)
}

// Matcher compares two embeddings and returns a match decision.
type Matcher interface {
	Verify(ctx context.Context, enrolled, candidate []float64) (Match, error)
}

// Detection is the validated result of a detect call.
type Detection struct {
	Embedding  []float64
	FacesCount int
}

// Match is the validated result of a verify call.
type Match struct {
	IsMatch          bool
	Confidence       float64
	CosineSimilarity float64
	Threshold        float64
}

// Client talks to the face service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a face service client with the given base URL and timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Success      bool      `json:"success"`
	Embedding    []float64 `json:"embedding"`
	FaceDetected bool      `json:"face_detected"`
	FacesCount   int       `json:"faces_count"`
	Error        string    `json:"error"`
}

// Detect submits a base64-encoded frame and returns the extracted embedding.
func (c *Client) Detect(ctx context.Context, imageBase64 string) (Detection, error) {
	var resp detectResponse
	if err := c.post(ctx, "/detect_face", detectRequest{Image: imageBase64}, &resp); err != nil {
		return Detection{}, err
	}
	if !resp.Success || !resp.FaceDetected {
		return Detection{}, fmt.Errorf("%w: %s", ErrNoFaceDetected, resp.Error)
	}
	if len(resp.Embedding) == 0 {
		return Detection{}, fmt.Errorf("%w: empty embedding", ErrNoFaceDetected)
	}
	return Detection{Embedding: resp.Embedding, FacesCount: resp.FacesCount}, nil
}

type verifyRequest struct {
	Embedding1 []float64 `json:"embedding1"`
	Embedding2 []float64 `json:"embedding2"`
}

type verifyResponse struct {
	Success          bool    `json:"success"`
	IsMatch          bool    `json:"is_match"`
	CosineSimilarity float64 `json:"cosine_similarity"`
	Confidence       float64 `json:"confidence"`
	ThresholdUsed    float64 `json:"threshold_used"`
	Error            string  `json:"error"`
}

// Verify compares the enrolled embedding against a candidate embedding.
func (c *Client) Verify(ctx context.Context, enrolled, candidate []float64) (Match, error) {
	if len(enrolled) == 0 || len(candidate) == 0 {
		return Match{}, errors.New("both embeddings are required")
	}
	var resp verifyResponse
	if err := c.post(ctx, "/verify_faces", verifyRequest{Embedding1: enrolled, Embedding2: candidate}, &resp); err != nil {
		return Match{}, err
	}
	if !resp.Success {
		return Match{}, fmt.Errorf("verify rejected: %s", resp.Error)
	}
	return Match{
		IsMatch:          resp.IsMatch,
		Confidence:       resp.Confidence,
		CosineSimilarity: resp.CosineSimilarity,
		Threshold:        resp.ThresholdUsed,
	}, nil
}

// Health checks service reachability. A failing health check is surfaced as a
// blocking error in the capture flow, never as a gating bypass.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
