package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// API talks to the account server.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

// NewAPI returns an API client for baseURL with a request timeout.
func NewAPI(baseURL string) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// TrustCA makes the client accept server certificates signed by the PEM
// certificate at caPath, such as the one written by tools/certgen.
func (a *API) TrustCA(caPath string) error {
	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return errors.New("failed to parse CA cert")
	}
	a.HTTP.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12},
	}
	return nil
}

type credentials struct {
	UserName  string `json:"userName"`
	Password  string `json:"password"`
	Password2 string `json:"password2,omitempty"`
}

// Register creates an account and returns the server's confirmation.
func (a *API) Register(ctx context.Context, userName, password, password2 string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := a.do(ctx, http.MethodPost, "/api/user/register", "", credentials{userName, password, password2}, &resp)
	return resp.Message, err
}

// Login returns a session token for the credentials.
func (a *API) Login(ctx context.Context, userName, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/user/login", "", credentials{UserName: userName, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return resp.Token, nil
}

// List returns the items of collection ("favourites" or "history").
func (a *API) List(ctx context.Context, token, collection string) ([]string, error) {
	var items []string
	err := a.do(ctx, http.MethodGet, "/api/user/"+collection, token, nil, &items)
	return items, err
}

// Add puts id into collection and returns the resulting items.
func (a *API) Add(ctx context.Context, token, collection, id string) ([]string, error) {
	var items []string
	err := a.do(ctx, http.MethodPut, itemPath(collection, id), token, nil, &items)
	return items, err
}

// Remove takes id out of collection and returns the resulting items.
func (a *API) Remove(ctx context.Context, token, collection, id string) ([]string, error) {
	var items []string
	err := a.do(ctx, http.MethodDelete, itemPath(collection, id), token, nil, &items)
	return items, err
}

func itemPath(collection, id string) string {
	return "/api/user/" + collection + "/" + url.PathEscape(id)
}

func (a *API) do(ctx context.Context, method, path, token string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts "message" or "error" from a JSON body, or returns
// the trimmed body as is.
func errorMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}
