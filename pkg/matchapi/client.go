package matchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"discovery-client/internal/entity"
)

// API is the remote matching service as the discovery session consumes it.
// Like/hide responses carry no data the session reads.
type API interface {
	FetchCandidateBatch(ctx context.Context, params entity.SearchParameters, coords *entity.Coordinates) (*entity.Batch, error)
	SendLike(ctx context.Context, candidateID string) error
	SendLikeWithMessage(ctx context.Context, candidateID, message string) error
	SendHide(ctx context.Context, candidateID string) error
	FetchOwnProfile(ctx context.Context) (*entity.OwnProfile, error)
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("match api %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks JSON over HTTPS to the matching service.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) API {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Wire structures

type candidateResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	ImageURL        string   `json:"image_url"`
	Distance        float64  `json:"distance"`
	SharedInterests []string `json:"shared_interests"`
	Description     string   `json:"description"`
	ActivityTier    int      `json:"activity_tier"`
	ReportCount     int      `json:"report_count"`
}

type batchResponse struct {
	Candidates   []candidateResponse `json:"candidates"`
	Incompatible bool                `json:"incompatible"`
}

type searchResponse struct {
	Distance             int    `json:"distance"`
	ShowOutsidePreferred bool   `json:"show_outside_preferred"`
	SortBy               string `json:"sort_by"`
	PreferredGender      string `json:"preferred_gender"`
}

type ownProfileResponse struct {
	ID        string         `json:"id"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Search    searchResponse `json:"search"`
	Complete  bool           `json:"complete"`
}

type likeRequest struct {
	CandidateID string `json:"candidate_id"`
	Message     string `json:"message,omitempty"`
}

type hideRequest struct {
	CandidateID string `json:"candidate_id"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) FetchCandidateBatch(ctx context.Context, params entity.SearchParameters, coords *entity.Coordinates) (*entity.Batch, error) {
	query := url.Values{}
	query.Set("distance", strconv.Itoa(params.Distance))
	query.Set("show_outside", strconv.FormatBool(params.ShowOutsidePreferred))
	if params.SortBy != "" {
		query.Set("sort", string(params.SortBy))
	}
	if params.PreferredGender != "" {
		query.Set("gender", params.PreferredGender)
	}
	if coords != nil {
		query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
		query.Set("lng", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	}

	var result batchResponse
	if err := c.do(ctx, http.MethodGet, "/discovery/candidates", query, nil, &result); err != nil {
		return nil, err
	}

	batch := &entity.Batch{
		Candidates:   make([]entity.Candidate, 0, len(result.Candidates)),
		Incompatible: result.Incompatible,
	}
	for _, cr := range result.Candidates {
		batch.Candidates = append(batch.Candidates, entity.Candidate{
			ID:              cr.ID,
			Name:            cr.Name,
			Age:             cr.Age,
			ImageURL:        cr.ImageURL,
			Distance:        cr.Distance,
			SharedInterests: cr.SharedInterests,
			Description:     cr.Description,
			ActivityTier:    entity.ActivityTier(cr.ActivityTier),
			ReportCount:     cr.ReportCount,
		})
	}
	return batch, nil
}

func (c *Client) SendLike(ctx context.Context, candidateID string) error {
	return c.do(ctx, http.MethodPost, "/interactions/like", nil, likeRequest{CandidateID: candidateID}, nil)
}

func (c *Client) SendLikeWithMessage(ctx context.Context, candidateID, message string) error {
	return c.do(ctx, http.MethodPost, "/interactions/like", nil, likeRequest{CandidateID: candidateID, Message: message}, nil)
}

func (c *Client) SendHide(ctx context.Context, candidateID string) error {
	return c.do(ctx, http.MethodPost, "/interactions/hide", nil, hideRequest{CandidateID: candidateID}, nil)
}

func (c *Client) FetchOwnProfile(ctx context.Context) (*entity.OwnProfile, error) {
	var result ownProfileResponse
	if err := c.do(ctx, http.MethodGet, "/profile/me", nil, nil, &result); err != nil {
		return nil, err
	}

	profile := &entity.OwnProfile{
		ID:       result.ID,
		Complete: result.Complete,
		SearchParameters: entity.SearchParameters{
			Distance:             result.Search.Distance,
			ShowOutsidePreferred: result.Search.ShowOutsidePreferred,
			SortBy:               entity.SortOrder(result.Search.SortBy),
			PreferredGender:      result.Search.PreferredGender,
		},
	}
	if result.Latitude != nil && result.Longitude != nil {
		profile.Coordinates = &entity.Coordinates{Latitude: *result.Latitude, Longitude: *result.Longitude}
	}
	return profile, nil
}
