package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultTimeout = 120 * time.Second

// HTTPService fronts a remote extraction service. Any failure is logged
// and reported as empty fields so one bad document never stops a
// population run.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPService(baseURL string, timeout time.Duration) *HTTPService {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type headerResponse struct {
	PlanName string `json:"plan_name"`
	State    string `json:"state"`
}

func (s *HTTPService) Extract(ctx context.Context, pdf []byte) *Result {
	out := &Result{}
	if err := s.post(ctx, "/extract", pdf, out); err != nil {
		logutil.GetLogger(ctx).Warn("document extraction failed", zap.Error(err))
		return &Result{}
	}
	return out
}

func (s *HTTPService) ExtractHeader(ctx context.Context, pdf []byte) (string, string) {
	out := &headerResponse{}
	if err := s.post(ctx, "/extract/header", pdf, out); err != nil {
		logutil.GetLogger(ctx).Warn("header extraction failed", zap.Error(err))
		return "", ""
	}
	return out.PlanName, out.State
}

func (s *HTTPService) post(ctx context.Context, path string, pdf []byte, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(pdf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/pdf")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("extraction service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
