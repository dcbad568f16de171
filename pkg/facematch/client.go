package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxResponseBytes bounds how much of the collaborator response is read.
const maxResponseBytes = 1 << 20

// responseSchema pins the shape of the collaborator response before any field
// is trusted: an integer status and a string message, nothing optional.
const responseSchema = `{
	"type": "object",
	"required": ["status", "message"],
	"properties": {
		"status": {"type": "integer"},
		"message": {"type": "string"}
	}
}`

var compiledResponseSchema = jsonschema.MustCompileString("facematch_response.json", responseSchema)

// Config contains connection settings for the face-match service.
type Config struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
}

// VerifyRequest carries the three captured face images for one checkin attempt.
type VerifyRequest struct {
	SessionID  uint   `json:"session_id"`
	UserID     uint   `json:"user_id"`
	ImageFront string `json:"image_front"`
	ImageLeft  string `json:"image_left"`
	ImageRight string `json:"image_right"`
}

// VerifyResponse is the collaborator verdict. Status 200 or 201 means the
// captured faces matched the registered one; anything else is a rejection
// whose message is surfaced to the caller verbatim.
type VerifyResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Accepted reports whether the collaborator accepted the match.
func (r VerifyResponse) Accepted() bool {
	return r.Status == http.StatusOK || r.Status == http.StatusCreated
}

// Verifier abstracts the face-match call for the checkin service.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error)
}

// Client talks to the external face-match service over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a face-match client with a bounded request timeout.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("face-match base url must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.BearerToken,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "facematch_client").Logger(),
	}, nil
}

// Verify submits the image triple and returns the collaborator verdict. Any
// transport failure, timeout, or schema-invalid body is returned as an error;
// the caller classifies those as verification failures, never as fatal.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("failed to encode verify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/verify", bytes.NewReader(payload))
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("failed to build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("face-match request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("failed to read face-match response: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return VerifyResponse{}, fmt.Errorf("malformed face-match response: %w", err)
	}
	if err := compiledResponseSchema.Validate(raw); err != nil {
		return VerifyResponse{}, fmt.Errorf("face-match response violates contract: %w", err)
	}

	var verdict VerifyResponse
	if err := json.Unmarshal(body, &verdict); err != nil {
		return VerifyResponse{}, fmt.Errorf("malformed face-match response: %w", err)
	}

	c.logger.Debug().
		Uint("session_id", req.SessionID).
		Uint("user_id", req.UserID).
		Int("verdict_status", verdict.Status).
		Msg("face-match verdict received")

	return verdict, nil
}
