package webapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/mobileconf"
)

var _ mobileconf.Transport = (*Client)(nil)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New("APIKEY", 76561197960287930)
	if err != nil {
		t.Fatal(err)
	}
	c.apiBase = srv.URL
	c.communityBase = srv.URL
	return c
}

func TestGetTradeOffers_Params(t *testing.T) {
	var got url.Values
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		got = r.URL.Query()
		w.Write([]byte(`{"response":{}}`))
	})

	body, err := c.GetTradeOffers(context.Background(), OffersQuery{
		ActiveOnly:       true,
		HistoricalCutoff: time.Unix(1700000000, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"response":{}}` {
		t.Errorf("unexpected body %s", body)
	}
	if path != "/IEconService/GetTradeOffers/v1/" {
		t.Errorf("unexpected path %q", path)
	}
	want := map[string]string{
		"key":                    "APIKEY",
		"get_sent_offers":        "1",
		"get_received_offers":    "1",
		"get_descriptions":       "1",
		"language":               "english",
		"active_only":            "1",
		"historical_only":        "0",
		"time_historical_cutoff": "1700000000",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("param %s: want %q, got %q", k, v, got.Get(k))
		}
	}
}

func TestGetTradeOffers_ZeroCutoff(t *testing.T) {
	var cutoff string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cutoff = r.URL.Query().Get("time_historical_cutoff")
		w.Write([]byte(`{}`))
	})
	if _, err := c.GetTradeOffers(context.Background(), OffersQuery{ActiveOnly: true}); err != nil {
		t.Fatal(err)
	}
	if cutoff != "1" {
		t.Errorf("expected cutoff 1, got %q", cutoff)
	}
}

func TestDo_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	_, err := c.GetTradeOffer(context.Background(), 1, "")
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if he.StatusCode != http.StatusForbidden {
		t.Errorf("unexpected status %d", he.StatusCode)
	}
}

func TestGet_SendsSessionAndMobileCookies(t *testing.T) {
	var r0 *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r0 = r
		w.Write([]byte("<html></html>"))
	})
	if err := c.SetSession("abc123", []string{"steamLoginSecure=token; Path=/"}); err != nil {
		t.Fatal(err)
	}
	if err := c.EnableMobileClient(""); err != nil {
		t.Fatal(err)
	}

	h := http.Header{}
	h.Set("X-Requested-With", "com.valvesoftware.android.steam.community")
	if _, err := c.Get(context.Background(), "/mobileconf/conf", url.Values{"tag": {"conf"}}, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cookies := map[string]string{
		"sessionid":        "abc123",
		"steamLoginSecure": "token",
		"mobileClient":     "android",
		"Steam_Language":   "english",
		"steamid":          "76561197960287930",
	}
	for name, want := range cookies {
		ck, err := r0.Cookie(name)
		if err != nil {
			t.Errorf("cookie %s missing", name)
			continue
		}
		if ck.Value != want {
			t.Errorf("cookie %s: want %q, got %q", name, want, ck.Value)
		}
	}
	if r0.Header.Get("X-Requested-With") != "com.valvesoftware.android.steam.community" {
		t.Error("header not forwarded")
	}
	if r0.Header.Get("User-Agent") != mobileUserAgent {
		t.Errorf("unexpected user agent %q", r0.Header.Get("User-Agent"))
	}
	if r0.URL.Query().Get("tag") != "conf" {
		t.Error("query not forwarded")
	}
	if c.SessionID() != "abc123" {
		t.Errorf("unexpected session id %q", c.SessionID())
	}
}

func TestSetSession_MalformedCookie(t *testing.T) {
	c, err := New("k", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetSession("s", []string{"novalue"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestServerTimeOffset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		ahead := time.Now().Add(time.Hour).Unix()
		w.Write([]byte(`{"response":{"server_time":"` + strconv.FormatInt(ahead, 10) + `","skew_tolerance_seconds":"60"}}`))
	})
	off, err := c.ServerTimeOffset(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if off < 59*time.Minute || off > 61*time.Minute {
		t.Errorf("unexpected offset %v", off)
	}
}
