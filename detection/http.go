package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// HTTPDetector calls a remote inference service. The service accepts the
// raw frame as the POST body of /detect and answers with class names and
// boxes.
type HTTPDetector struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewHTTPDetector creates a detector for the service at baseURL
func NewHTTPDetector(baseURL string) *HTTPDetector {
	return &HTTPDetector{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
	}
}

// inferenceBox is one box in the service response. Conf is nullable.
type inferenceBox struct {
	Class int       `json:"cls"`
	Conf  *float64  `json:"conf"`
	XYXY  []float64 `json:"xyxy"`
}

type inferenceResponse struct {
	Names map[string]string `json:"names"`
	Boxes []inferenceBox    `json:"boxes"`
}

func (d *HTTPDetector) client() *http.Client {
	if d.HTTPClient == nil {
		return &http.Client{Timeout: 30 * time.Second}
	}
	return d.HTTPClient
}

// Detect implements Detector
func (d *HTTPDetector) Detect(ctx context.Context, frame Frame) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/detect", bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	contentType := frame.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("detect failed (status %d): %s", resp.StatusCode, string(body))
	}

	var decoded inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decoded.records(), nil
}

// Ping checks that the service answers its health endpoint
func (d *HTTPDetector) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed (status %d)", resp.StatusCode)
	}
	return nil
}

func (r inferenceResponse) records() []Record {
	records := make([]Record, 0, len(r.Boxes))
	for _, box := range r.Boxes {
		key := strconv.Itoa(box.Class)
		label, ok := r.Names[key]
		if !ok {
			label = "id" + key
		}
		record := Record{Label: label, Confidence: box.Conf}
		if len(box.XYXY) == 4 {
			record.Region = &Region{X1: box.XYXY[0], Y1: box.XYXY[1], X2: box.XYXY[2], Y2: box.XYXY[3]}
		}
		records = append(records, record)
	}
	return records
}
