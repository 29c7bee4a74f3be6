// Package wakapi fetches raw heartbeats from a Wakapi server through its
// WakaTime-compatible API.
package wakapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/Tiliavir/wakalyze/internal/model"
)

// DefaultBaseURL is the public Wakapi instance.
const DefaultBaseURL = "https://wakapi.dev"

// ErrInvalidResponse is returned when the response body cannot be read as a
// heartbeat list.
var ErrInvalidResponse = errors.New("invalid heartbeat response")

// Client is an authenticated Wakapi API client.
type Client struct {
	baseURL    string
	user       string
	httpClient *http.Client
}

// BasicToken wraps an API key into a static token that oauth2 sends as
// "Authorization: Basic <base64(key)>".
func BasicToken(apiKey string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: base64.StdEncoding.EncodeToString([]byte(apiKey)),
		TokenType:   "Basic",
	}
}

// NewClient creates a client for the Wakapi server at baseURL acting on
// behalf of user. Requests are authorized by ts and bounded by timeout.
func NewClient(baseURL, user string, ts oauth2.TokenSource, timeout time.Duration) *Client {
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = timeout
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		httpClient: httpClient,
	}
}

// NewAPIKeyClient is NewClient with a static Basic token built from apiKey.
func NewAPIKeyClient(baseURL, user, apiKey string, timeout time.Duration) *Client {
	return NewClient(baseURL, user, oauth2.StaticTokenSource(BasicToken(apiKey)), timeout)
}

// Server identifies the Wakapi instance: the base URL's host and path
// without the scheme, or the base URL itself when it does not parse.
func (c *Client) Server() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Host == "" {
		return c.baseURL
	}
	return u.Host + strings.TrimRight(u.Path, "/")
}

// User returns the user the client fetches heartbeats for.
func (c *Client) User() string {
	return c.user
}

// FetchHeartbeats returns the raw heartbeats recorded on date.
func (c *Client) FetchHeartbeats(ctx context.Context, date time.Time) ([]model.RawHeartbeat, error) {
	endpoint := fmt.Sprintf("%s/api/compat/wakatime/v1/users/%s/heartbeats?date=%s",
		c.baseURL,
		url.PathEscape(c.user),
		url.QueryEscape(date.Format("2006-01-02")),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wakapi request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("wakapi API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return ParseHeartbeats(body)
}

// ParseHeartbeats reads the "data" list of a heartbeats response. A missing or
// null list yields no heartbeats. Fields of unexpected type are treated as
// absent.
func ParseHeartbeats(body []byte) ([]model.RawHeartbeat, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidResponse)
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return []model.RawHeartbeat{}, nil
	}
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: data is not a list", ErrInvalidResponse)
	}

	items := data.Array()
	out := make([]model.RawHeartbeat, 0, len(items))
	for _, item := range items {
		out = append(out, parseHeartbeat(item))
	}
	return out, nil
}

func parseHeartbeat(item gjson.Result) model.RawHeartbeat {
	var hb model.RawHeartbeat
	if !item.IsObject() {
		return hb
	}
	if t, ok := numericValue(item.Get("time")); ok {
		hb.Time = model.FloatPtr(t)
	}
	if p := item.Get("project"); p.Type == gjson.String {
		hb.Project = model.StringPtr(p.String())
	}
	return hb
}

func numericValue(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		return v, err == nil
	default:
		return 0, false
	}
}
