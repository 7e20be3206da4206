package mobileconf

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

const (
	listPath = "/mobileconf/conf"
	ajaxPath = "/mobileconf/ajaxop"

	// Tag used for both listing and acting on confirmations.
	tagConf = "conf"
)

// Operation is the action applied to a confirmation.
type Operation string

const (
	OpAllow  Operation = "allow"
	OpCancel Operation = "cancel"
)

// Transport performs an authenticated GET against the community host and
// returns the response body. Non-2xx responses are errors.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values, header http.Header) ([]byte, error)
}

// Client lists and answers confirmations for one account. The identity
// secret is sealed in a memguard Enclave and opened only while a request is
// signed.
type Client struct {
	transport Transport
	steamID   uint64
	deviceID  string

	mu      sync.RWMutex
	enclave *memguard.Enclave
	offset  time.Duration

	nowFunc func() time.Time
}

func NewClient(transport Transport, steamID uint64) *Client {
	return &Client{
		transport: transport,
		steamID:   steamID,
		deviceID:  DeviceID(steamID),
		nowFunc:   time.Now,
	}
}

// SetIdentitySecret seals the decoded secret. secret is wiped by this call.
func (c *Client) SetIdentitySecret(secret []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enclave = memguard.NewEnclave(secret)
}

// SetTimeOffset records server time minus local time.
func (c *Client) SetTimeOffset(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = d
}

// ServerTime is the local clock corrected by the recorded offset.
func (c *Client) ServerTime() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nowFunc().Add(c.offset).Unix()
}

func (c *Client) DeviceID() string { return c.deviceID }

// signedQuery builds p, a, k, t, m and tag for one request.
func (c *Client) signedQuery(tag string) (url.Values, error) {
	c.mu.RLock()
	enclave := c.enclave
	c.mu.RUnlock()
	if enclave == nil {
		return nil, ErrNoIdentitySecret
	}

	t := c.ServerTime()
	buf, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("mobileconf: open enclave: %w", err)
	}
	key := GenerateConfirmationHash(t, tag, buf.Bytes())
	buf.Destroy()

	q := url.Values{}
	q.Set("p", c.deviceID)
	q.Set("a", strconv.FormatUint(c.steamID, 10))
	q.Set("k", key)
	q.Set("t", strconv.FormatInt(t, 10))
	q.Set("m", "android")
	q.Set("tag", tag)
	return q, nil
}

func mobileHeader() http.Header {
	h := http.Header{}
	h.Set("X-Requested-With", "com.valvesoftware.android.steam.community")
	return h
}

// List fetches the pending confirmations.
func (c *Client) List(ctx context.Context) ([]Confirmation, error) {
	q, err := c.signedQuery(tagConf)
	if err != nil {
		return nil, err
	}
	body, err := c.transport.Get(ctx, listPath, q, mobileHeader())
	if err != nil {
		return nil, fmt.Errorf("mobileconf: list: %w", err)
	}
	return ParseConfirmations(body)
}

func (c *Client) Accept(ctx context.Context, conf Confirmation) error {
	return c.Respond(ctx, conf, OpAllow)
}

func (c *Client) Deny(ctx context.Context, conf Confirmation) error {
	return c.Respond(ctx, conf, OpCancel)
}

// Respond applies op to conf. A refusal carrying a message is a
// *RemoteError; one without is ErrActionRejected.
func (c *Client) Respond(ctx context.Context, conf Confirmation, op Operation) error {
	q, err := c.signedQuery(tagConf)
	if err != nil {
		return err
	}
	q.Set("op", string(op))
	q.Set("cid", strconv.FormatUint(conf.ID, 10))
	q.Set("ck", strconv.FormatUint(conf.Key, 10))

	body, err := c.transport.Get(ctx, ajaxPath, q, mobileHeader())
	if err != nil {
		return fmt.Errorf("mobileconf: %s %d: %w", op, conf.ID, err)
	}

	d := normalize.NewDecoder("", body)
	success := d.Bool("success")
	message := d.OptionalString("message")
	if err := d.Err(); err != nil {
		return fmt.Errorf("mobileconf: %s %d: %w", op, conf.ID, err)
	}
	if !success {
		if message != "" {
			return &RemoteError{Message: message}
		}
		return ErrActionRejected
	}
	return nil
}
