package stamps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIURL   = "https://api.alerce.online/ztf/v1"
	defaultStampURL = "https://avro.alerce.online"
	defaultTimeout  = 30 * time.Second

	// maxStampBytes bounds a single PNG download.
	maxStampBytes = 8 << 20
)

var (
	errNoStampedDetection = errors.New("no detection with stamps")
	errResponseTooLarge   = errors.New("response exceeds size limit")
)

// AlerceConfig holds the ALeRCE endpoints.
type AlerceConfig struct {
	APIURL   string        `yaml:"apiURL"`
	StampURL string        `yaml:"stampURL"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AlerceSource downloads stamps from the ALeRCE broker.
type AlerceSource struct {
	apiURL   string
	stampURL string
	client   *http.Client
}

func NewAlerceSource(cfg AlerceConfig) *AlerceSource {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.StampURL == "" {
		cfg.StampURL = defaultStampURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &AlerceSource{
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		stampURL: strings.TrimRight(cfg.StampURL, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type detection struct {
	Candid   json.RawMessage `json:"candid"`
	HasStamp bool            `json:"has_stamp"`
}

// Stamps resolves the first detection carrying stamps and downloads each kind as PNG.
// A kind the broker does not serve is left out of the result.
func (s *AlerceSource) Stamps(ctx context.Context, objectID string) ([]Stamp, error) {
	candid, err := s.stampCandid(ctx, objectID)
	if err != nil {
		if errors.Is(err, errNoStampedDetection) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]Stamp, 0, len(Kinds))
	for _, kind := range Kinds {
		data, err := s.download(ctx, objectID, candid, kind)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		out = append(out, Stamp{Kind: kind, Data: data})
	}
	return out, nil
}

func (s *AlerceSource) stampCandid(ctx context.Context, objectID string) (string, error) {
	endpoint := fmt.Sprintf("%s/objects/%s/detections", s.apiURL, url.PathEscape(objectID))
	body, status, err := s.get(ctx, endpoint, 0)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", errNoStampedDetection
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("detections for %s: unexpected status %d", objectID, status)
	}

	var detections []detection
	if err := json.Unmarshal(body, &detections); err != nil {
		return "", fmt.Errorf("decode detections for %s: %w", objectID, err)
	}
	for _, d := range detections {
		if !d.HasStamp {
			continue
		}
		if candid := candidString(d.Candid); candid != "" {
			return candid, nil
		}
	}
	return "", errNoStampedDetection
}

func (s *AlerceSource) download(ctx context.Context, objectID, candid string, kind Kind) ([]byte, error) {
	q := url.Values{}
	q.Set("oid", objectID)
	q.Set("candid", candid)
	q.Set("type", string(kind))
	q.Set("format", "png")

	body, status, err := s.get(ctx, s.stampURL+"/get_stamp?"+q.Encode(), maxStampBytes)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound || status == http.StatusNoContent:
		return nil, nil
	case status != http.StatusOK:
		return nil, fmt.Errorf("%s stamp for %s: unexpected status %d", kind, objectID, status)
	}
	return body, nil
}

func (s *AlerceSource) get(ctx context.Context, endpoint string, limit int64) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request failed: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body failed: %w", err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, resp.StatusCode, fmt.Errorf("%w: more than %d bytes from %s", errResponseTooLarge, limit, req.URL.Path)
	}
	return body, resp.StatusCode, nil
}

// candidString accepts candid encoded as a JSON number or string.
func candidString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
