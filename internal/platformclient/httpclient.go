package platformclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HTTPClient is a net/http-based PlatformClient that talks to a JSON RPC
// surface exposed by the host platform. It stands in for the real
// out-of-scope collaborator described in spec.md §6.
type HTTPClient struct {
	baseURL string
	http    atomic.Pointer[http.Client]
}

// NewHTTPClient builds an HTTPClient rooted at baseURL (e.g.
// "http://platform.local:19080").
func NewHTTPClient(baseURL string) *HTTPClient {
	c := &HTTPClient{baseURL: baseURL}
	c.http.Store(defaultHTTPClient())
	return c
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Refresh atomically swaps the underlying *http.Client, discarding pooled
// connections that may be wedged after a "platform closed" error. A loser
// of a concurrent Refresh simply discards the client it displaced.
func (c *HTTPClient) Refresh(_ context.Context) error {
	old := c.http.Swap(defaultHTTPClient())
	if old != nil {
		old.CloseIdleConnections()
	}
	return nil
}

// Close releases pooled connections.
func (c *HTTPClient) Close() error {
	c.http.Load().CloseIdleConnections()
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("platformclient: building request: %w", err)
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("platformclient: encoding body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("platformclient: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Load().Do(req)
	if err != nil {
		return ErrClosed
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 500 {
		return ErrClosed
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("platformclient: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("platformclient: decoding response: %w", err)
	}
	return nil
}

func (c *HTTPClient) ServiceExists(ctx context.Context, serviceURI string, partition *uuid.UUID) (bool, error) {
	q := url.Values{"service": {serviceURI}}
	if partition != nil {
		q.Set("partition", partition.String())
	}
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.get(ctx, "/platform/services/exists", q, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *HTTPClient) FindPartition(ctx context.Context, partitionID uuid.UUID) (*Partition, error) {
	var p Partition
	err := c.get(ctx, "/platform/partitions/"+partitionID.String(), nil, &p)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ResolveEndpoint(ctx context.Context, serviceURI, partitionKey string) (*ResolvedEndpoint, error) {
	q := url.Values{"service": {serviceURI}, "partitionKey": {partitionKey}}
	var ep ResolvedEndpoint
	err := c.get(ctx, "/platform/endpoints/resolve", q, &ep)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (c *HTTPClient) ReportPartitionHealth(ctx context.Context, partitionID uuid.UUID, source, property string, state HealthState) error {
	return c.post(ctx, "/platform/health", map[string]any{
		"partitionId": partitionID.String(),
		"source":      source,
		"property":    property,
		"state":       int(state),
	}, nil)
}

func (c *HTTPClient) ClusterHealth(ctx context.Context) (ClusterHealth, error) {
	var ch ClusterHealth
	err := c.get(ctx, "/platform/cluster/health", nil, &ch)
	return ch, err
}

func (c *HTTPClient) PartitionLoad(ctx context.Context, partitionID uuid.UUID) ([]LoadReport, error) {
	var reports []LoadReport
	err := c.get(ctx, "/platform/partitions/"+partitionID.String()+"/load", nil, &reports)
	return reports, err
}

func (c *HTTPClient) ReplicaLoad(ctx context.Context, partitionID uuid.UUID, replicaID string) ([]LoadReport, error) {
	var reports []LoadReport
	path := fmt.Sprintf("/platform/partitions/%s/replicas/%s/load", partitionID, replicaID)
	err := c.get(ctx, path, nil, &reports)
	return reports, err
}

func (c *HTTPClient) AppLoad(ctx context.Context, app string) ([]LoadReport, error) {
	var reports []LoadReport
	err := c.get(ctx, "/platform/apps/"+app+"/load", nil, &reports)
	return reports, err
}

func (c *HTTPClient) PartitionList(ctx context.Context, serviceURI, continuation string) (Page[Partition], error) {
	q := url.Values{"service": {serviceURI}}
	if continuation != "" {
		q.Set("continuation", continuation)
	}
	var page Page[Partition]
	err := c.get(ctx, "/platform/partitions", q, &page)
	return page, err
}

func (c *HTTPClient) ReplicaList(ctx context.Context, partitionID uuid.UUID, continuation string) (Page[Replica], error) {
	q := url.Values{}
	if continuation != "" {
		q.Set("continuation", continuation)
	}
	var page Page[Replica]
	err := c.get(ctx, "/platform/partitions/"+partitionID.String()+"/replicas", q, &page)
	return page, err
}

var _ Client = (*HTTPClient)(nil)
