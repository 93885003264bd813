package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clinicboard/annotator/internal/state"
)

// FoundHeader is set to "false" by the annotation server when it answers a
// GET with the empty document because nothing is stored.
const FoundHeader = "X-Annotations-Found"

// RemoteStore talks to an annotation server over HTTP.
type RemoteStore struct {
	base   string
	client *http.Client
}

type RemoteOption func(*RemoteStore)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteStore) { r.client = c }
}

// NewRemoteStore returns a store for the server at baseURL, e.g.
// "http://10.0.0.5:8888".
func NewRemoteStore(baseURL string, opts ...RemoteOption) *RemoteStore {
	r := &RemoteStore{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DocumentURL is the server URL of key's annotations.
func (r *RemoteStore) DocumentURL(key ImageKey) string {
	return r.base + "/clinics/" + url.PathEscape(key.ClinicID) +
		"/patients/" + url.PathEscape(key.PatientID) +
		"/images/" + url.PathEscape(key.ImageID) + "/annotations"
}

func (r *RemoteStore) Load(ctx context.Context, key ImageKey) (*state.Document, error) {
	if err := key.Validate(); err != nil {
		return nil, wrap("load", key, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.DocumentURL(key), nil)
	if err != nil {
		return nil, wrap("load", key, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, wrap("load", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, wrap("load", key, statusError(resp))
	}
	if resp.Header.Get(FoundHeader) == "false" {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap("load", key, err)
	}
	doc, err := state.Unmarshal(data)
	if err != nil {
		return nil, wrap("load", key, err)
	}
	return &doc, nil
}

func (r *RemoteStore) Save(ctx context.Context, key ImageKey, doc state.Document) error {
	if err := key.Validate(); err != nil {
		return wrap("save", key, err)
	}
	data, err := state.Marshal(doc)
	if err != nil {
		return wrap("save", key, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.DocumentURL(key), bytes.NewReader(data))
	if err != nil {
		return wrap("save", key, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return wrap("save", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return wrap("save", key, statusError(resp))
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
}
