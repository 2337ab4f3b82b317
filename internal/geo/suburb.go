package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// Suburb is the smallest geographic subscription unit. The list is static
// reference data: loaded once at startup and replaced wholesale on re-sync.
// IDs are stable across reloads.
type Suburb struct {
	ID        string  `json:"suburb_id"`
	Name      string  `json:"suburb_name"`
	Postcode  string  `json:"postcode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Provider supplies the suburb reference list.
type Provider interface {
	ListSuburbs(ctx context.Context) ([]Suburb, error)
}

// HTTPProvider fetches the suburb list from a remote reference service that
// responds with a {"data": [...]} JSON envelope.
type HTTPProvider struct {
	client *http.Client
	url    string
}

func NewHTTPProvider(client *http.Client, url string) *HTTPProvider {
	return &HTTPProvider{client: client, url: url}
}

func (p *HTTPProvider) ListSuburbs(ctx context.Context) ([]Suburb, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch suburbs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch suburbs: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data []Suburb `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode suburbs: %w", err)
	}
	return envelope.Data, nil
}

// FileProvider loads the suburb list from a local JSON seed file. Used in
// development and as the initial snapshot before the first remote sync.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) ListSuburbs(_ context.Context) ([]Suburb, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read suburb seed: %w", err)
	}

	var suburbs []Suburb
	if err := json.Unmarshal(raw, &suburbs); err != nil {
		return nil, fmt.Errorf("decode suburb seed: %w", err)
	}
	return suburbs, nil
}
