package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/mkovardin/fleetwatch/internal/logger"
)

const defaultTimeout = 10 * time.Second

// Config of the external identity directory. Empty BaseURL means federation
// is disabled and every call is a cheap no-op.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// Per-request timeout, default is used when zero
	Timeout time.Duration
}

// Client talks to an external identity directory API: it provisions users and keeps
// one directory group per owner company. All calls have a bounded timeout and
// callers are expected to treat failures as "feature unavailable".
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

func New(cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoOp()
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  log,
	}
	if c.baseURL == "" {
		return c
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	// Client credentials grant against the directory's token endpoint
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     c.baseURL + "/oauth2/v1/token",
		Scopes:       []string{"directory.users.manage", "directory.groups.manage"},
	}

	c.http = cc.Client(context.Background())
	c.http.Timeout = cfg.Timeout

	return c
}

func (c *Client) Enabled() bool {
	return c.baseURL != "" && c.http != nil
}

type directoryResource struct {
	ID string `json:"id"`
}

// ProvisionUser creates (or re-creates) the user in the directory and returns
// the directory-side user id
func (c *Client) ProvisionUser(ctx context.Context, email string, fullName string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	first, last := splitName(fullName)
	payload := map[string]any{
		"profile": map[string]string{
			"firstName": first,
			"lastName":  last,
			"email":     email,
			"login":     email,
		},
	}

	var created directoryResource
	if err := c.do(ctx, http.MethodPost, "/api/v1/users?activate=true", payload, &created); err != nil {
		return "", fmt.Errorf("directory user provisioning: %w", err)
	}

	c.logger.Info("provisioned directory user", "directory_user_id", created.ID)
	return created.ID, nil
}

// EnsureOwnerGroup finds or creates the directory group for the company and
// returns its id
func (c *Client) EnsureOwnerGroup(ctx context.Context, companyName string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	name := "fleet-" + strings.ToLower(strings.TrimSpace(companyName))

	var found []directoryResource
	err := c.do(ctx, http.MethodGet, "/api/v1/groups?q="+url.QueryEscape(name)+"&limit=1", nil, &found)
	if err == nil && len(found) > 0 {
		return found[0].ID, nil
	}

	payload := map[string]any{
		"profile": map[string]string{
			"name":        name,
			"description": "Fleet owner group for " + companyName,
		},
	}

	var created directoryResource
	if err := c.do(ctx, http.MethodPost, "/api/v1/groups", payload, &created); err != nil {
		return "", fmt.Errorf("directory group provisioning: %w", err)
	}

	return created.ID, nil
}

func (c *Client) do(ctx context.Context, method string, path string, payload any, out any) error {
	var body *bytes.Buffer = &bytes.Buffer{}
	if payload != nil {
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func splitName(fullName string) (first string, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return fullName, fullName
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], parts[len(parts)-1]
	}
}
