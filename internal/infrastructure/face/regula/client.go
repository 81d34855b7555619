// Package regula verifies that the portrait on an identity document and the
// submitted selfie belong to the same person, using the Regula Face API.
package regula

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/resilience"
)

const DefaultMatchThreshold = 0.75

type Client struct {
	baseURL    string
	threshold  float64
	httpClient *http.Client
	exec       *resilience.Executor
}

func NewClient(baseURL string, threshold float64, exec *resilience.Executor) *Client {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &Client{
		baseURL:    baseURL,
		threshold:  threshold,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		exec:       exec,
	}
}

type matchImage struct {
	Type  int    `json:"type"`
	Data  string `json:"data"`
	Index int    `json:"index"`
}

type matchRequest struct {
	Images []matchImage `json:"images"`
}

type matchResponse struct {
	Results []struct {
		Similarity float64 `json:"similarity"`
	} `json:"results"`
}

// MatchFaces compares the document portrait against the selfie and reports
// the best similarity the API found.
func (c *Client) MatchFaces(ctx context.Context, document, selfie []byte) (domain.FaceMatch, error) {
	payload := matchRequest{Images: []matchImage{
		{Type: 1, Data: base64.StdEncoding.EncodeToString(document), Index: 0},
		{Type: 2, Data: base64.StdEncoding.EncodeToString(selfie), Index: 1},
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.FaceMatch{}, fmt.Errorf("marshal match request: %w", err)
	}

	var decoded matchResponse
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/match", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create match request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute match request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &HTTPStatusError{Operation: "match", StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
		}
		return json.NewDecoder(resp.Body).Decode(&decoded)
	}

	if c.exec != nil {
		err = c.exec.Execute(ctx, "face_match", call, classifyFaceError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.FaceMatch{}, wrapTemporaryIfNeeded("regula.MatchFaces", err)
	}

	similarity := bestSimilarity(decoded)
	matched := similarity >= c.threshold

	match := domain.FaceMatch{
		Checked:    true,
		Matched:    matched,
		Similarity: similarity,
	}
	if matched {
		match.Message = fmt.Sprintf("Faces match with similarity %.2f", similarity)
	} else {
		match.Message = fmt.Sprintf("Faces do not match (similarity %.2f, threshold %.2f)", similarity, c.threshold)
	}
	return match, nil
}

// HealthCheck verifies the face service is reachable. Used at worker start.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/healthz", nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPStatusError{Operation: "healthz", StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}
	return nil
}

func bestSimilarity(resp matchResponse) float64 {
	best := 0.0
	for _, result := range resp.Results {
		if result.Similarity > best {
			best = result.Similarity
		}
	}
	return best
}
