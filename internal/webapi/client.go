// Package webapi is the HTTP transport for the Web API and the community
// site. It only moves bytes; parsing lives in the domain packages.
package webapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

const (
	defaultAPIBase       = "https://api.steampowered.com"
	defaultCommunityBase = "https://steamcommunity.com"

	mobileUserAgent = "Mozilla/5.0 (Linux; U; Android 4.1.1; en-us; Google Nexus 4 - 4.1.1 - API 16 - 768x1280 Build/JRO03S) AppleWebKit/534.30 (KHTML, like Gecko) Version/4.0 Mobile Safari/534.30"
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("webapi: %s: status %d", e.URL, e.StatusCode)
}

// Client carries the API key and the community session of one account.
// Cookies live in the client's jar, so concurrent requests share one
// session.
type Client struct {
	apiKey  string
	steamID uint64

	apiBase       string
	communityBase string
	http          *http.Client

	mu        sync.RWMutex
	sessionID string
	mobile    bool
}

func New(apiKey string, steamID uint64) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("webapi: cookie jar: %w", err)
	}
	return &Client{
		apiKey:        apiKey,
		steamID:       steamID,
		apiBase:       defaultAPIBase,
		communityBase: defaultCommunityBase,
		http:          &http.Client{Timeout: 30 * time.Second, Jar: jar},
	}, nil
}

// SetSession installs the community session id and raw "name=value"
// cookies from a web login.
func (c *Client) SetSession(sessionID string, cookies []string) error {
	u, err := url.Parse(c.communityBase)
	if err != nil {
		return fmt.Errorf("webapi: community url: %w", err)
	}
	jarCookies := []*http.Cookie{{Name: "sessionid", Value: sessionID}}
	for _, raw := range cookies {
		name, value, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("webapi: malformed cookie %q", raw)
		}
		value, _, _ = strings.Cut(value, ";")
		jarCookies = append(jarCookies, &http.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	c.http.Jar.SetCookies(u, jarCookies)

	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	return nil
}

// EnableMobileClient sets the cookies and user agent of the mobile app,
// which the confirmation pages require.
func (c *Client) EnableMobileClient(language string) error {
	u, err := url.Parse(c.communityBase)
	if err != nil {
		return fmt.Errorf("webapi: community url: %w", err)
	}
	if language == "" {
		language = "english"
	}
	c.http.Jar.SetCookies(u, []*http.Cookie{
		{Name: "mobileClientVersion", Value: "0 (2.1.3)"},
		{Name: "mobileClient", Value: "android"},
		{Name: "Steam_Language", Value: language},
		{Name: "dob", Value: ""},
		{Name: "steamid", Value: strconv.FormatUint(c.steamID, 10)},
	})

	c.mu.Lock()
	c.mobile = true
	c.mu.Unlock()
	return nil
}

func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// OffersQuery selects the offers returned by GetTradeOffers.
type OffersQuery struct {
	ActiveOnly     bool
	HistoricalOnly bool
	// HistoricalCutoff includes inactive offers updated after this time.
	// Zero sends the earliest possible cutoff.
	HistoricalCutoff time.Time
	Language         string
}

// GetTradeOffers fetches sent and received offers with descriptions.
func (c *Client) GetTradeOffers(ctx context.Context, q OffersQuery) ([]byte, error) {
	v := url.Values{}
	v.Set("key", c.apiKey)
	v.Set("get_sent_offers", "1")
	v.Set("get_received_offers", "1")
	v.Set("get_descriptions", "1")
	v.Set("language", orDefault(q.Language, "english"))
	v.Set("active_only", boolParam(q.ActiveOnly))
	v.Set("historical_only", boolParam(q.HistoricalOnly))
	cutoff := int64(1)
	if !q.HistoricalCutoff.IsZero() {
		cutoff = q.HistoricalCutoff.Unix()
	}
	v.Set("time_historical_cutoff", strconv.FormatInt(cutoff, 10))
	return c.do(ctx, http.MethodGet, c.apiBase+"/IEconService/GetTradeOffers/v1/", v, nil)
}

// GetTradeOffer fetches one offer with its descriptions.
func (c *Client) GetTradeOffer(ctx context.Context, id uint64, language string) ([]byte, error) {
	v := url.Values{}
	v.Set("key", c.apiKey)
	v.Set("tradeofferid", strconv.FormatUint(id, 10))
	v.Set("language", orDefault(language, "english"))
	v.Set("get_descriptions", "1")
	return c.do(ctx, http.MethodGet, c.apiBase+"/IEconService/GetTradeOffer/v1/", v, nil)
}

// Get issues a GET against the community host.
func (c *Client) Get(ctx context.Context, path string, query url.Values, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.communityBase+path, query, header)
}

// ServerTimeOffset asks the two-factor service for its clock and returns
// server time minus local time.
func (c *Client) ServerTimeOffset(ctx context.Context) (time.Duration, error) {
	body, err := c.do(ctx, http.MethodPost, c.apiBase+"/ITwoFactorService/QueryTime/v1/", nil, nil)
	if err != nil {
		return 0, err
	}
	outer := normalize.NewDecoder("", body)
	d := normalize.NewDecoder("response", outer.Raw("response"))
	serverTime := d.Int64("server_time")
	if err := outer.Err(); err != nil {
		return 0, fmt.Errorf("webapi: query time: %w", err)
	}
	if err := d.Err(); err != nil {
		return 0, fmt.Errorf("webapi: query time: %w", err)
	}
	return time.Duration(serverTime-time.Now().Unix()) * time.Second, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, header http.Header) ([]byte, error) {
	u := rawURL
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("webapi: create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.mu.RLock()
	if c.mobile {
		req.Header.Set("User-Agent", mobileUserAgent)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webapi: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
