package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"whisperkey/internal/domain"
)

// keyPath is the route prefix for per-user keys.
const keyPath = "/keys/"

type publishRequest struct {
	PublicKey domain.EncodedPublicKey `json:"public_key"`
}

type keyResponse struct {
	UserID    domain.UserID           `json:"user_id"`
	PublicKey domain.EncodedPublicKey `json:"public_key"`
}

// HTTPClient is a domain.PublicKeyDirectory backed by a directory server.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the server at base. A nil hc uses
// http.DefaultClient.
func NewHTTP(base string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// FetchPublicKey returns the key published for userID. A 404 is reported as
// not found rather than as an error.
func (c *HTTPClient) FetchPublicKey(
	ctx context.Context,
	userID domain.UserID,
) (domain.EncodedPublicKey, bool, error) {
	u := c.Base + keyPath + url.PathEscape(string(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode/100 != 2 {
		return "", false, fmt.Errorf("directory get %s: %s", u, resp.Status)
	}
	var out keyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("directory get %s: decode: %w", u, err)
	}
	if out.PublicKey == "" {
		return "", false, nil
	}
	return out.PublicKey, true, nil
}

// PublishPublicKey stores encoded as userID's public key, replacing any
// previous value.
func (c *HTTPClient) PublishPublicKey(
	ctx context.Context,
	userID domain.UserID,
	encoded domain.EncodedPublicKey,
) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(publishRequest{PublicKey: encoded}); err != nil {
		return err
	}
	u := c.Base + keyPath + url.PathEscape(string(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("directory put %s: %s", u, resp.Status)
	}
	return nil
}

// Publisher binds dir to userID so it can be handed to key initialization.
func Publisher(dir domain.PublicKeyDirectory, userID domain.UserID) domain.PublicKeyPublisher {
	return domain.PublisherFunc(func(ctx context.Context, encoded domain.EncodedPublicKey) error {
		return dir.PublishPublicKey(ctx, userID, encoded)
	})
}

var _ domain.PublicKeyDirectory = (*HTTPClient)(nil)
