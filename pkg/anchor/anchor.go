// Package anchor talks to the external anchoring collaborator that binds a
// primary digest to a point in time on an append-only ledger. Connection
// and identity management live outside this module; only the
// request/response contract is implemented here.
package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/your-org/evidenceflow/pkg/forensic"
)

// Submitter is the anchor collaborator contract: submit a primary digest,
// receive a ledger reference. Submission is retryable; anchoring the same
// digest twice does not change already-anchored state.
type Submitter interface {
	Submit(ctx context.Context, primaryDigestHex string) (string, error)
}

// Config parameterizes the HTTP anchor client.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client is the HTTP implementation of Submitter.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds an HTTP anchor client. An empty endpoint produces a
// client whose submissions fail as identity-unavailable, so the pipeline
// works without an anchor collaborator configured.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	Digest string `json:"digest"`
}

type submitResponse struct {
	ReferenceID string `json:"reference_id"`
	Error       string `json:"error"`
}

// Submit posts the digest to the anchor endpoint. Failures are categorized
// for the caller: identity-unavailable and declined come back from the
// collaborator as auth statuses, everything else is a network/chain error.
func (c *Client) Submit(ctx context.Context, primaryDigestHex string) (string, error) {
	if c.endpoint == "" {
		return "", forensic.AnchorFailure(forensic.ReasonIdentityUnavailable,
			"no anchor endpoint configured", nil)
	}

	body, err := json.Marshal(submitRequest{Digest: primaryDigestHex})
	if err != nil {
		return "", forensic.AnchorFailure(forensic.ReasonNetwork, "encode anchor request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", forensic.AnchorFailure(forensic.ReasonNetwork, "build anchor request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", forensic.AnchorFailure(forensic.ReasonNetwork, "anchor call failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", forensic.AnchorFailure(forensic.ReasonNetwork, "read anchor response", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized:
		return "", forensic.AnchorFailure(forensic.ReasonIdentityUnavailable,
			"anchor collaborator has no identity available", nil)
	case http.StatusForbidden:
		return "", forensic.AnchorFailure(forensic.ReasonDeclined,
			"anchor submission was declined", nil)
	default:
		return "", forensic.AnchorFailure(forensic.ReasonNetwork,
			fmt.Sprintf("anchor collaborator returned status %d", resp.StatusCode), nil)
	}

	var out submitResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", forensic.AnchorFailure(forensic.ReasonNetwork, "decode anchor response", err)
	}
	if out.ReferenceID == "" {
		return "", forensic.AnchorFailure(forensic.ReasonNetwork,
			"anchor collaborator returned no reference id", nil)
	}
	return out.ReferenceID, nil
}
