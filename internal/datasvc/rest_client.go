package datasvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var _ Accessor = (*RESTClient)(nil)

// RESTClient talks to a PostgREST compatible data API.
type RESTClient struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	metricsManager *metrics.Manager
}

func NewRESTClient(
	baseURL string,
	apiKey string,
	httpClient *http.Client,
	metricsManager *metrics.Manager,
) *RESTClient {
	return &RESTClient{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		apiKey:         apiKey,
		httpClient:     httpClient,
		metricsManager: metricsManager,
	}
}

func (c *RESTClient) GetAll(ctx context.Context, resource string) (_ []json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.rest.getAll")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource))
	defer c.observe("get_all", time.Now())

	respBody, err := c.do(ctx, http.MethodGet, c.resourceURL(resource), nil)
	if err != nil {
		return nil, fmt.Errorf("get all [%s]: %w", resource, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(respBody, &records); err != nil {
		return nil, fmt.Errorf("decode [%s] records: %w", resource, err)
	}
	return records, nil
}

func (c *RESTClient) Create(ctx context.Context, resource string, body any) (_ json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.rest.create")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource))
	defer c.observe("create", time.Now())

	respBody, err := c.do(ctx, http.MethodPost, c.resourceURL(resource), body)
	if err != nil {
		return nil, fmt.Errorf("create [%s]: %w", resource, err)
	}
	return firstRecord(respBody, false)
}

func (c *RESTClient) UpdateByID(ctx context.Context, resource string, id int, body any) (_ json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.rest.updateById")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource), attribute.Int("id", id))
	defer c.observe("update", time.Now())

	respBody, err := c.do(ctx, http.MethodPatch, c.recordURL(resource, id), body)
	if err != nil {
		return nil, fmt.Errorf("update [%s/%d]: %w", resource, id, err)
	}
	return firstRecord(respBody, true)
}

func (c *RESTClient) DeleteByID(ctx context.Context, resource string, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "datasvc.rest.deleteById")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("resource", resource), attribute.Int("id", id))
	defer c.observe("delete", time.Now())

	if _, err := c.do(ctx, http.MethodDelete, c.recordURL(resource, id), nil); err != nil {
		return fmt.Errorf("delete [%s/%d]: %w", resource, id, err)
	}
	return nil
}

func (c *RESTClient) resourceURL(resource string) string {
	return c.baseURL + "/" + strings.TrimPrefix(resource, "/")
}

func (c *RESTClient) recordURL(resource string, id int) string {
	u := c.resourceURL(resource)
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "id=eq." + strconv.Itoa(id)
}

func (c *RESTClient) do(ctx context.Context, method, reqURL string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	bearer := c.apiKey
	if token := TokenFromContext(ctx); token != "" {
		bearer = token
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Errorf("datasvc: close response body: %s", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", ErrConflict, errorMessage(respBody))
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(respBody))
	default:
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}
}

func (c *RESTClient) observe(op string, start time.Time) {
	if c.metricsManager == nil {
		return
	}
	c.metricsManager.HistogramDataCallDuration.
		WithLabelValues("rest", op).
		Observe(time.Since(start).Seconds())
}

// firstRecord unwraps the single record from a representation response.
// An empty body (no representation requested by the server) is accepted
// unless mustExist is set.
func firstRecord(body []byte, mustExist bool) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		if mustExist {
			return nil, ErrNotFound
		}
		return nil, nil
	}

	if trimmed[0] != '[' {
		return json.RawMessage(trimmed), nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode representation: %w", err)
	}
	if len(records) == 0 {
		if mustExist {
			return nil, ErrNotFound
		}
		return nil, nil
	}
	return records[0], nil
}

func errorMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
