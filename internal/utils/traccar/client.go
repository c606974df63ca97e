package traccar

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/poofware/fleet-service/internal/metrics"
)

const (
	OpRegister = "register_device"
	OpUpdate   = "update_device"
	OpDelete   = "delete_device"

	devicesPath = "/devices"
)

// Gateway mirrors locally-assigned boitiers on the tracking platform.
// Every call is one round trip with no retry. authHeader is forwarded
// untouched as the Authorization header.
type Gateway interface {
	RegisterDevice(ctx context.Context, authHeader string, d Device) (int64, error)
	UpdateDevice(ctx context.Context, authHeader string, remoteID int64, d Device) (int64, error)
	DeleteDevice(ctx context.Context, authHeader string, remoteID int64) error
}

// Device is the registration payload sent to the platform.
type Device struct {
	Name           string    `json:"name"`
	UniqueID       string    `json:"uniqueId"`
	Phone          string    `json:"phone"`
	ExpirationTime time.Time `json:"expirationTime"`
}

type deviceResponse struct {
	ID int64 `json:"id"`
}

// Error is returned for any failed platform call: transport failure,
// timeout, non-2xx status, or an unusable response body.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "traccar %s failed", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Client is a resty-backed Gateway.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds a Client for baseURL. A non-positive timeout falls back
// to ten seconds; an expired call is reported as an Error.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)

	return &Client{httpClient: restyClient}
}

func (c *Client) RegisterDevice(ctx context.Context, authHeader string, d Device) (id int64, err error) {
	defer observe(OpRegister, time.Now(), &err)
	return c.sendDevice(ctx, OpRegister, authHeader, devicesPath, d)
}

// UpdateDevice posts to /devices/{id}, which is how the platform accepts updates.
func (c *Client) UpdateDevice(ctx context.Context, authHeader string, remoteID int64, d Device) (id int64, err error) {
	defer observe(OpUpdate, time.Now(), &err)
	return c.sendDevice(ctx, OpUpdate, authHeader, devicePath(remoteID), d)
}

func (c *Client) DeleteDevice(ctx context.Context, authHeader string, remoteID int64) (err error) {
	defer observe(OpDelete, time.Now(), &err)

	resp, err := c.request(ctx, authHeader).Delete(devicePath(remoteID))
	if err != nil {
		return &Error{Op: OpDelete, Err: err}
	}
	if !resp.IsSuccess() {
		return &Error{Op: OpDelete, StatusCode: resp.StatusCode(), Message: bodySnippet(resp)}
	}
	return nil
}

func (c *Client) sendDevice(ctx context.Context, op, authHeader, path string, d Device) (int64, error) {
	result := new(deviceResponse)
	resp, err := c.request(ctx, authHeader).
		SetBody(d).
		SetResult(result).
		Post(path)
	if err != nil {
		return 0, &Error{Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		return 0, &Error{Op: op, StatusCode: resp.StatusCode(), Message: bodySnippet(resp)}
	}
	if result.ID <= 0 {
		return 0, &Error{Op: op, StatusCode: resp.StatusCode(), Message: "response carries no device id"}
	}
	return result.ID, nil
}

func (c *Client) request(ctx context.Context, authHeader string) *resty.Request {
	req := c.httpClient.R().SetContext(ctx)
	if authHeader != "" {
		req.SetHeader("Authorization", authHeader)
	}
	return req
}

func devicePath(remoteID int64) string {
	return devicesPath + "/" + strconv.FormatInt(remoteID, 10)
}

func bodySnippet(resp *resty.Response) string {
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return body
}

func observe(op string, started time.Time, errp *error) {
	metrics.ObserveRemoteSync(op, started, *errp)
}
