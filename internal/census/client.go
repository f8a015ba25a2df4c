package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geostat-labs/svindex/internal/frame"
)

// ChunkSize is the per-request variable limit of the API product. NAME
// rides along with every chunk and does not count toward the limit.
const ChunkSize = 50

// RequestError reports a transport failure for one chunk of a dataset
// fetch. Any chunk failing fails the whole dataset fetch; no partial
// dataset results are accepted.
type RequestError struct {
	Dataset string
	Chunk   int
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("dataset %s chunk %d: %v", e.Dataset, e.Chunk, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Client downloads raw variables from the census API.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the given API root. An empty apiKey is
// allowed; keyless requests run at the public quota.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Download fetches the given raw codes for one dataset, splitting them into
// chunks of at most ChunkSize codes, and merges the chunk tables on the
// geography key columns. The returned table is sentinel-cleaned and numeric
// except for the key columns and NAME.
func (c *Client) Download(ctx context.Context, dataset string, codes []string, geography, state string, year int) (*frame.Table, error) {
	geo, err := Lookup(geography)
	if err != nil {
		return nil, err
	}

	var merged *frame.Table
	for i := 0; i < len(codes); i += ChunkSize {
		end := min(i+ChunkSize, len(codes))
		chunk := codes[i:end]
		chunkNo := i/ChunkSize + 1

		c.logger.Debug("fetching chunk",
			"dataset", dataset, "chunk", chunkNo, "codes", len(chunk))

		table, err := c.fetchChunk(ctx, dataset, chunk, geo, state, year)
		if err != nil {
			return nil, &RequestError{Dataset: dataset, Chunk: chunkNo, Err: err}
		}

		if merged == nil {
			merged = table
			continue
		}
		merged, err = merged.LeftJoin(table)
		if err != nil {
			return nil, fmt.Errorf("merge chunk %d of dataset %s: %w", chunkNo, dataset, err)
		}
	}

	if merged == nil {
		return nil, fmt.Errorf("dataset %s has no codes to fetch", dataset)
	}
	merged.CoerceNumeric("NAME")
	return merged, nil
}

func (c *Client) fetchChunk(ctx context.Context, dataset string, chunk []string, geo Geography, state string, year int) (*frame.Table, error) {
	endpoint := fmt.Sprintf("%s/%d/%s", c.baseURL, year, dataset)

	params := url.Values{}
	params.Set("get", strings.Join(append([]string{"NAME"}, chunk...), ","))
	if geo.Name == "state" {
		params.Set("for", "state:"+state)
	} else {
		params.Set("for", geo.Name+":*")
		in := "state:" + state
		for _, w := range geo.Wildcards {
			in += " " + w + ":*"
		}
		params.Set("in", in)
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// The API returns an array of arrays: header row first, cells are
	// strings or null.
	var rows [][]*string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		if cell == nil {
			return nil, fmt.Errorf("null column name at index %d", i)
		}
		header[i] = *cell
	}

	records := make([][]string, len(rows)-1)
	for r, row := range rows[1:] {
		rec := make([]string, len(row))
		for i, cell := range row {
			if cell != nil {
				rec[i] = *cell
			}
		}
		records[r] = rec
	}

	table, err := frame.FromRecords(geo.Keys, header, records)
	if err != nil {
		return nil, fmt.Errorf("shape response: %w", err)
	}
	return table, nil
}

// ChunkCount returns the number of requests needed for n codes.
func ChunkCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + ChunkSize - 1) / ChunkSize
}
