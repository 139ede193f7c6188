package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// CRM is the subset of the Pipedrive API the booking sync needs
type CRM interface {
	SearchPersonsByEmail(ctx context.Context, email string) ([]int, error)
	CreatePerson(ctx context.Context, in PersonInput) (*int, error)
	CreateOrganization(ctx context.Context, name string) (*int, error)
	CreateDeal(ctx context.Context, in DealInput) (*int, error)
	CreateNote(ctx context.Context, dealID int, content string) (*int, error)
	CreateActivity(ctx context.Context, in ActivityInput) (*int, error)
}

// PersonInput is the body of POST /persons
type PersonInput struct {
	Name  string        `json:"name"`
	Email []PersonEmail `json:"email"`
	OrgID *int          `json:"org_id,omitempty"`
}

// PersonEmail is one entry of a person's email list
type PersonEmail struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

// DealInput is the body of POST /deals. Pipeline and stage stay in the body
// as null when they are not configured.
type DealInput struct {
	Title      string `json:"title"`
	PersonID   int    `json:"person_id"`
	PipelineID *int   `json:"pipeline_id"`
	StageID    *int   `json:"stage_id"`
	OrgID      *int   `json:"org_id,omitempty"`
}

// ActivityInput is the body of POST /activities
type ActivityInput struct {
	Subject  string `json:"subject"`
	Type     string `json:"type"`
	DealID   int    `json:"deal_id"`
	PersonID int    `json:"person_id"`
	DueDate  string `json:"due_date"`
	DueTime  string `json:"due_time"`
	Duration string `json:"duration"`
	Note     string `json:"note"`
	Done     int    `json:"done"`
}

// PipedriveCreateResponse is the envelope returned by the create endpoints
type PipedriveCreateResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		ID *int `json:"id"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// PipedrivePersonSearchResponse represents the search response from Pipedrive
type PipedrivePersonSearchResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Items []struct {
			ResultScore float64 `json:"result_score"`
			Item        struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"item"`
		} `json:"items"`
	} `json:"data"`
}

// APIError is returned when Pipedrive answers with a non-2xx status
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pipedrive %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pipedrive %s: HTTP %d", e.Endpoint, e.StatusCode)
}

// ErrUnreadableResponse marks a 2xx answer whose body is not the expected JSON
var ErrUnreadableResponse = errors.New("unreadable pipedrive response")

// PipedriveClient talks to the Pipedrive v1 REST API
type PipedriveClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

// NewPipedriveClient creates a client from configuration. metrics may be nil.
func NewPipedriveClient(config *Config, logger *zap.Logger, metrics *Metrics) *PipedriveClient {
	return &PipedriveClient{
		baseURL:    config.PipedriveBaseURL,
		apiToken:   config.PipedriveAPIToken,
		httpClient: &http.Client{Timeout: config.PipedriveTimeout},
		logger:     logger.Named("pipedrive"),
		metrics:    metrics,
	}
}

// makePipedriveRequest sends one authenticated JSON request and decodes the
// response into out. Non-2xx answers come back as *APIError.
func (p *PipedriveClient) makePipedriveRequest(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_token", p.apiToken)
	fullURL := p.baseURL + endpoint + "?" + query.Encode()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request body: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(jsonData)
		p.logger.Debug("request body", zap.String("endpoint", endpoint), zap.ByteString("body", jsonData))
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.metrics.ObserveRequest(endpoint, 0, time.Since(start))
		return fmt.Errorf("failed to call pipedrive %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	p.metrics.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read pipedrive %s response: %w", endpoint, err)
	}

	p.logger.Debug("pipedrive response",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", bodyBytes),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var envelope PipedriveCreateResponse
		if json.Unmarshal(bodyBytes, &envelope) == nil {
			apiErr.Message = envelope.Error
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrUnreadableResponse, endpoint, err)
	}
	return nil
}

// create posts body to endpoint and returns data.id, nil when absent
func (p *PipedriveClient) create(ctx context.Context, endpoint string, body interface{}) (*int, error) {
	var result PipedriveCreateResponse
	if err := p.makePipedriveRequest(ctx, http.MethodPost, endpoint, nil, body, &result); err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, nil
	}
	return result.Data.ID, nil
}

// SearchPersonsByEmail returns the ids of persons matching email, best match first
func (p *PipedriveClient) SearchPersonsByEmail(ctx context.Context, email string) ([]int, error) {
	query := url.Values{}
	query.Set("term", email)

	var result PipedrivePersonSearchResponse
	if err := p.makePipedriveRequest(ctx, http.MethodGet, "/persons/search", query, nil, &result); err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, nil
	}

	ids := make([]int, 0, len(result.Data.Items))
	for _, item := range result.Data.Items {
		ids = append(ids, item.Item.ID)
	}
	return ids, nil
}

// CreatePerson creates a contact
func (p *PipedriveClient) CreatePerson(ctx context.Context, in PersonInput) (*int, error) {
	return p.create(ctx, "/persons", in)
}

// CreateOrganization creates an organization with just a name
func (p *PipedriveClient) CreateOrganization(ctx context.Context, name string) (*int, error) {
	return p.create(ctx, "/organizations", map[string]string{"name": name})
}

// CreateDeal creates a deal
func (p *PipedriveClient) CreateDeal(ctx context.Context, in DealInput) (*int, error) {
	return p.create(ctx, "/deals", in)
}

// CreateNote attaches a note to a deal
func (p *PipedriveClient) CreateNote(ctx context.Context, dealID int, content string) (*int, error) {
	return p.create(ctx, "/notes", map[string]interface{}{
		"deal_id": dealID,
		"content": content,
	})
}

// CreateActivity schedules an activity
func (p *PipedriveClient) CreateActivity(ctx context.Context, in ActivityInput) (*int, error) {
	return p.create(ctx, "/activities", in)
}
