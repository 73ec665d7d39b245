// Package remote rewrites knowledge objects that live behind the product's
// management interface rather than on disk. Objects are listed per endpoint,
// rewritten with the same engine as on-disk content, audited, and written
// back in rate-limited batches.
package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"komigrate/internal/config"
)

// Any non-200 status aborts the whole run: a partial pass over live objects
// is worse than no pass.
var (
	ErrUnauthorized  = errors.New("management interface rejected the credentials")
	ErrForbidden     = errors.New("management interface denied access")
	ErrRequestFailed = errors.New("management interface request failed")
)

// Endpoint describes one knowledge-object collection.
type Endpoint struct {
	Name         string
	Path         string
	ContentField string

	// AuditOnly endpoints cannot be updated through this interface; their
	// objects are reported for follow-up in the UI instead.
	AuditOnly bool
}

// Endpoints returns the collections a run visits, in order.
func Endpoints() []Endpoint {
	return []Endpoint{
		{Name: "saved searches", Path: "/servicesNS/-/-/saved/searches", ContentField: "search"},
		{Name: "event types", Path: "/servicesNS/-/-/saved/eventtypes", ContentField: "search"},
		{Name: "macros", Path: "/servicesNS/-/-/admin/macros", ContentField: "definition", AuditOnly: true},
		{Name: "views", Path: "/servicesNS/-/-/data/ui/views", ContentField: "eai:data"},
	}
}

// Object is one knowledge object as listed by an endpoint. ID is the
// object's own management URL and is used for updates.
type Object struct {
	ID      string
	Name    string
	Author  string
	Content string
}

// Client talks to the management interface with basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	hc       *http.Client
	log      *zap.Logger
}

func NewClient(cfg config.RemoteConfig, username, password string, log *zap.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: username,
		password: password,
		hc:       &http.Client{Transport: transport, Timeout: 60 * time.Second},
		log:      log,
	}
}

type listResponse struct {
	Entry []struct {
		ID      string                     `json:"id"`
		Name    string                     `json:"name"`
		Author  string                     `json:"author"`
		Content map[string]json.RawMessage `json:"content"`
	} `json:"entry"`
}

// List fetches every object of an endpoint.
func (c *Client) List(ctx context.Context, ep Endpoint) ([]Object, error) {
	u := c.baseURL + ep.Path + "?output_mode=json&count=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building list request for %s: %w", ep.Name, err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", ep.Name, err)
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode, ep.Name); err != nil {
		return nil, err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", ep.Name, err)
	}

	objs := make([]Object, 0, len(lr.Entry))
	for _, e := range lr.Entry {
		var content string
		if raw, ok := e.Content[ep.ContentField]; ok {
			if err := json.Unmarshal(raw, &content); err != nil {
				c.log.Warn("object content is not a string, skipping",
					zap.String("endpoint", ep.Name), zap.String("object", e.Name))
				continue
			}
		}
		objs = append(objs, Object{ID: e.ID, Name: e.Name, Author: e.Author, Content: content})
	}
	c.log.Info("listed endpoint", zap.String("endpoint", ep.Name), zap.Int("objects", len(objs)))
	return objs, nil
}

// Update writes new content to one object.
func (c *Client) Update(ctx context.Context, ep Endpoint, obj Object, content string) error {
	form := url.Values{ep.ContentField: {content}, "output_mode": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, obj.ID,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building update request for %s: %w", obj.Name, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("updating %s: %w", obj.Name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return statusError(resp.StatusCode, obj.Name)
}

func statusError(code int, what string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", what, ErrUnauthorized)
	case code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", what, ErrForbidden)
	default:
		return fmt.Errorf("%s: status %d: %w", what, code, ErrRequestFailed)
	}
}
