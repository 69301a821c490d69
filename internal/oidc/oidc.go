package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// maxDocumentSize bounds the discovery document read from the provider.
const maxDocumentSize = 1 << 20

// ErrIssuerMismatch is returned when the document names another issuer than
// the one it was fetched from.
var ErrIssuerMismatch = errors.New("discovery document issuer does not match")

// Metadata holds the provider endpoints the Library API uses.
type Metadata struct {
	Issuer                string `json:"issuer"`
	JWKSURI               string `json:"jwks_uri"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

// Discover fetches the OpenID Connect discovery document of issuerURL.
// A nil client means http.DefaultClient.
func Discover(ctx context.Context, client *http.Client, issuerURL string) (*Metadata, error) {
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(issuerURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid issuer URL %q", issuerURL)
	}
	u.Path = path.Join(u.Path, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch discovery document from %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching discovery document from %s", resp.StatusCode, u)
	}

	var md Metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&md); err != nil {
		return nil, fmt.Errorf("could not decode discovery document: %w", err)
	}

	if md.JWKSURI == "" {
		return nil, errors.New("discovery document has no jwks_uri")
	}
	if md.Issuer != "" && normalize(md.Issuer) != normalize(issuerURL) {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrIssuerMismatch, md.Issuer, issuerURL)
	}

	return &md, nil
}

func normalize(issuer string) string {
	return strings.TrimSuffix(issuer, "/")
}
