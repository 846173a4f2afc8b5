// API gateway client for the music backend
package services

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
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
)

const defaultBaseURL string = "http://localhost:8000"

// authRoutePrefix marks routes that must never carry a bearer token.
const authRoutePrefix = "/auth/"

// TokenSource lends the current session's access token to each request.
type TokenSource interface {
	AccessToken() string
}

// APIService is the HTTP client for the backend.
//
// It attaches the bearer token from its [TokenSource] to every request outside /auth/,
// and reports 401 responses to a single unauthorized handler.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger

	mu             sync.Mutex
	tokens         TokenSource
	onUnauthorized func()
	// expiredTokens records tokens whose 401 has already been handled.
	expiredTokens map[string]struct{}
}

var _ Backend = (*APIService)(nil)

// NewAPIService creates a new API client for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    client,
		logger:        log.New(io.Discard),
		expiredTokens: make(map[string]struct{}),
	}
}

// SetLogger sets the logger used for request tracing.
func (a *APIService) SetLogger(l *log.Logger) {
	if l != nil {
		a.logger = l
	}
}

// SetTokenSource sets where bearer tokens are read from.
func (a *APIService) SetTokenSource(ts TokenSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = ts
}

// OnUnauthorized registers the session teardown handler for 401 responses.
//
// The handler runs at most once per access token, however many requests fail with it.
func (a *APIService) OnUnauthorized(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUnauthorized = fn
}

// BaseURL returns the configured backend origin.
func (a *APIService) BaseURL() string { return a.baseURL }

// StreamURL builds the media URL for a stream reference, or "" when there is none.
func (a *APIService) StreamURL(ref models.ID) string {
	if ref == "" {
		return ""
	}
	return a.baseURL + "/stream/" + url.PathEscape(ref.String())
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return a.send(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.send(req)
}

// send authorizes and executes req, reading the whole body.
func (a *APIService) send(req *http.Request) (*APIResponse, error) {
	token := a.authorize(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		a.handleUnauthorized(token)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// authorize attaches the bearer token unless the request targets an auth route.
// It returns the token used, if any.
func (a *APIService) authorize(req *http.Request) string {
	if IsAuthRoute(req.URL.Path) {
		return ""
	}

	a.mu.Lock()
	ts := a.tokens
	a.mu.Unlock()

	if ts == nil {
		return ""
	}

	token := ts.AccessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return token
}

func (a *APIService) handleUnauthorized(token string) {
	a.mu.Lock()
	if _, seen := a.expiredTokens[token]; seen {
		a.mu.Unlock()
		return
	}
	a.expiredTokens[token] = struct{}{}
	fn := a.onUnauthorized
	a.mu.Unlock()

	a.logger.Warn("received 401, tearing down session")
	if fn != nil {
		fn()
	}
}

// IsAuthRoute reports whether path is one of the credential exchange routes.
func IsAuthRoute(path string) bool {
	return strings.Contains(path, authRoutePrefix)
}

// doJSON sends a JSON request and decodes a JSON response into result (when non-nil).
func (a *APIService) doJSON(ctx context.Context, method, path string, query url.Values, payload, result any) error {
	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("api request", "method", method, "path", path)

	resp, err := a.send(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s %s", shared.ErrUnauthorized, method, path)
	}

	if !resp.OK() {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(resp.Body, &errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// SongQuery holds the /songs query parameters.
type SongQuery struct {
	Search   string
	Limit    int
	Skip     int
	Genre    string
	Mood     string
	Listen   string // duration bucket
	Language string
}

// NewSongQuery builds a query for one page of the catalogue under filters.
func NewSongQuery(f models.Filters, limit, skip int) SongQuery {
	return SongQuery{
		Search:   f.SearchQuery,
		Limit:    limit,
		Skip:     skip,
		Genre:    f.Genre,
		Mood:     f.Mood,
		Listen:   f.Duration,
		Language: f.Language,
	}
}

// Values encodes the query, defaulting absent fields to "all", 0, or the page limit.
func (q SongQuery) Values() url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = models.PageLimit
	}
	skip := q.Skip
	if skip < 0 {
		skip = 0
	}

	v := url.Values{}
	v.Set("search", q.Search)
	v.Set("limit", strconv.Itoa(limit))
	v.Set("skip", strconv.Itoa(skip))
	v.Set("genre", orAll(q.Genre))
	v.Set("mood", orAll(q.Mood))
	v.Set("listen", orAll(q.Listen))
	v.Set("language", orAll(q.Language))
	return v
}

func orAll(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.FilterAll
	}
	return s
}

// FetchSongs retrieves one catalogue page.
//
// Calls GET /songs.
func (a *APIService) FetchSongs(ctx context.Context, q SongQuery) ([]models.Song, error) {
	var page models.SongPage
	if err := a.doJSON(ctx, http.MethodGet, "/songs", q.Values(), nil, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []models.Song{}, nil
	}
	return page.Results, nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session token and the server-held preference snapshot.
//
// Calls POST /auth/login.
func (a *APIService) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	var result models.LoginResult
	err := a.doJSON(ctx, http.MethodPost, "/auth/login", nil, credentials{username, password}, &result)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", shared.ErrAuthFailed)
	}
	return &result, nil
}

// Register creates an account.
//
// Calls POST /auth/register.
func (a *APIService) Register(ctx context.Context, username, password string) error {
	if err := a.doJSON(ctx, http.MethodPost, "/auth/register", nil, credentials{username, password}, nil); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrRegisterFailed, err)
	}
	return nil
}

// Sync pushes the preference snapshot for the current session.
//
// Calls POST /user/sync.
func (a *APIService) Sync(ctx context.Context, state models.CloudState) error {
	return a.doJSON(ctx, http.MethodPost, "/user/sync", nil, state, nil)
}

// Lyrics fetches raw, newline-delimited lyrics text. An empty string means none were found.
//
// Calls GET /proxy/lyrics.
func (a *APIService) Lyrics(ctx context.Context, artist, title string) (string, error) {
	var result struct {
		Lyrics string `json:"lyrics"`
	}
	q := url.Values{"artist": {artist}, "title": {title}}
	if err := a.doJSON(ctx, http.MethodGet, "/proxy/lyrics", q, nil, &result); err != nil {
		return "", err
	}
	return result.Lyrics, nil
}

// Wiki fetches descriptive text for query, letting the proxy fall back to the fallback query.
//
// Calls GET /proxy/wiki.
func (a *APIService) Wiki(ctx context.Context, query, fallback string) (string, error) {
	var result struct {
		Extract string `json:"extract"`
	}
	q := url.Values{"query": {query}, "fallback": {fallback}}
	if err := a.doJSON(ctx, http.MethodGet, "/proxy/wiki", q, nil, &result); err != nil {
		return "", err
	}
	return result.Extract, nil
}
