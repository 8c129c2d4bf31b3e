package enclave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const maxResponseSize = 16 * 1024 * 1024

var (
	ErrPrivacyGroupNotFound = errors.New("enclave: privacy group not found")
	ErrInvalidJWTSecret     = errors.New("enclave: invalid jwt secret")
)

// Error is a non-success reply from the enclave.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("enclave: request failed with status %d: %s", e.Status, e.Message)
}

// Config is the enclave connection configuration.
type Config struct {
	URL            string
	JWTSecretFile  string        `toml:",omitempty"`
	RequestTimeout time.Duration `toml:",omitempty"`
}

// DefaultConfig points at a locally running enclave.
var DefaultConfig = Config{
	URL:            "http://127.0.0.1:9101",
	RequestTimeout: 10 * time.Second,
}

// Enclave is the privacy manager surface consumed by the privacy controller.
type Enclave interface {
	Send(ctx context.Context, payload, from string, to []string) (*SendResponse, error)
	SendToGroup(ctx context.Context, payload, from, privacyGroupID string) (*SendResponse, error)
	Receive(ctx context.Context, key, to string) (*ReceiveResponse, error)
	CreatePrivacyGroup(ctx context.Context, addresses []string, from, name, description string) (*PrivacyGroup, error)
	DeletePrivacyGroup(ctx context.Context, privacyGroupID, from string) (string, error)
	FindPrivacyGroup(ctx context.Context, addresses []string) ([]*PrivacyGroup, error)
	RetrievePrivacyGroup(ctx context.Context, privacyGroupID string) (*PrivacyGroup, error)
	Upcheck(ctx context.Context) error
}

// Client talks to the enclave REST API. It performs no retries.
type Client struct {
	cfg    Config
	url    string
	http   *fasthttp.Client
	secret []byte
	log    log.Logger
}

// NewClient creates an enclave client. The JWT secret file, if configured,
// must hold a hex encoded 32 byte key.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig.RequestTimeout
	}
	c := &Client{
		cfg:  cfg,
		url:  strings.TrimRight(cfg.URL, "/"),
		http: &fasthttp.Client{
			Name:                "gpriv",
			MaxResponseBodySize: maxResponseSize,
		},
		log:  log.New("enclave", cfg.URL),
	}
	if cfg.JWTSecretFile != "" {
		secret, err := readJWTSecret(cfg.JWTSecretFile)
		if err != nil {
			return nil, err
		}
		c.secret = secret
	}
	return c, nil
}

func readJWTSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTSecret, err)
	}
	hex := strings.TrimSpace(string(data))
	if !strings.HasPrefix(hex, "0x") {
		hex = "0x" + hex
	}
	secret := common.FromHex(hex)
	if len(secret) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, have %d", ErrInvalidJWTSecret, len(secret))
	}
	return secret, nil
}

// Config returns the configuration the client was created with.
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) Send(ctx context.Context, payload, from string, to []string) (*SendResponse, error) {
	var resp SendResponse
	err := c.post(ctx, "/send", &SendRequest{Payload: payload, From: from, To: to}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendToGroup(ctx context.Context, payload, from, privacyGroupID string) (*SendResponse, error) {
	var resp SendResponse
	err := c.post(ctx, "/send", &SendToGroupRequest{Payload: payload, From: from, PrivacyGroupID: privacyGroupID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Receive(ctx context.Context, key, to string) (*ReceiveResponse, error) {
	var resp ReceiveResponse
	if err := c.post(ctx, "/receive", &ReceiveRequest{Key: key, To: to}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreatePrivacyGroup(ctx context.Context, addresses []string, from, name, description string) (*PrivacyGroup, error) {
	req := &createPrivacyGroupRequest{
		Addresses:   addresses,
		From:        from,
		Name:        name,
		Description: description,
	}
	var group PrivacyGroup
	if err := c.post(ctx, "/createPrivacyGroup", req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) DeletePrivacyGroup(ctx context.Context, privacyGroupID, from string) (string, error) {
	var id string
	err := c.post(ctx, "/deletePrivacyGroup", &deletePrivacyGroupRequest{PrivacyGroupID: privacyGroupID, From: from}, &id)
	return id, err
}

func (c *Client) FindPrivacyGroup(ctx context.Context, addresses []string) ([]*PrivacyGroup, error) {
	var groups []*PrivacyGroup
	if err := c.post(ctx, "/findPrivacyGroup", &findPrivacyGroupRequest{Addresses: addresses}, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// RetrievePrivacyGroup fetches a group by id. A missing group is reported as
// ErrPrivacyGroupNotFound.
func (c *Client) RetrievePrivacyGroup(ctx context.Context, privacyGroupID string) (*PrivacyGroup, error) {
	var group PrivacyGroup
	err := c.post(ctx, "/retrievePrivacyGroup", &retrievePrivacyGroupRequest{PrivacyGroupID: privacyGroupID}, &group)
	var reqErr *Error
	if errors.As(err, &reqErr) && reqErr.Status == fasthttp.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrPrivacyGroupNotFound, privacyGroupID)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Upcheck probes the enclave liveness endpoint.
func (c *Client) Upcheck(ctx context.Context) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	if err := c.prepare(req, fasthttp.MethodGet, "/upcheck"); err != nil {
		return err
	}
	_, err := c.do(ctx, req)
	return err
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	enc, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	if err := c.prepare(req, fasthttp.MethodPost, path); err != nil {
		return err
	}
	req.Header.SetContentType("application/json")
	req.SetBody(enc)

	start := time.Now()
	data, err := c.do(ctx, req)
	requestTimer.UpdateSince(start)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("enclave: invalid %s response: %v", path, err)
	}
	return nil
}

func (c *Client) prepare(req *fasthttp.Request, method, path string) error {
	req.SetRequestURI(c.url + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if c.secret != nil {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		}).SignedString(c.secret)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// do executes req and returns a copy of the response body. fasthttp has no
// context support, so only the context deadline bounds the request.
func (c *Client) do(ctx context.Context, req *fasthttp.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	path := string(req.URI().Path())
	c.log.Trace("Sending enclave request", "method", string(req.Header.Method()), "path", path, "id", string(req.Header.Peek("X-Request-Id")))

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		requestErrorMeter.Mark(1)
		return nil, err
	}
	data := common.CopyBytes(resp.Body())
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		requestErrorMeter.Mark(1)
		c.log.Debug("Enclave request failed", "path", path, "status", status)
		return nil, &Error{Status: status, Message: decodeErrorMessage(data)}
	}
	return data, nil
}
