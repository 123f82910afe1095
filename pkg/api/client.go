// Package api is the typed client for the LMRK administration backend.
// It covers the auth endpoints consumed by the session layer and the
// report/lookup endpoints the dashboard screens render.
//
// Business calls go through Transport, which handles bearer injection
// and 401 recovery; auth calls use a plain cookie-carrying client so
// the session layer observes auth failures directly instead of having
// the transport absorb them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lmrk/lmrkctl/pkg/tokenstore"
)

// DefaultTimeout bounds every request the client issues.
const DefaultTimeout = 10 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://lmrk-backend.example.com".
	BaseURL string

	// Store holds the access token. Both the transport and the session
	// layer read and write it; writes are idempotent.
	Store tokenstore.Store

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Logger receives transport-level events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Client talks to the LMRK backend. Create one with New and share it;
// it is safe for concurrent use.
type Client struct {
	baseURL string
	store   tokenstore.Store
	signals *SignalHub

	// plain carries the cookie jar but no bearer/retry interception.
	plain *http.Client

	// authed routes through Transport.
	authed *http.Client

	logger *slog.Logger
}

// New creates a Client. The plain and intercepted HTTP clients share
// one cookie jar so the refresh cookie set at login is presented by
// the transport's refresh calls.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	plain := &http.Client{Jar: jar, Timeout: cfg.Timeout}

	transport := &Transport{
		base:          http.DefaultTransport,
		store:         cfg.Store,
		signals:       NewSignalHub(),
		refreshURL:    baseURL + "/api/auth/refresh",
		refreshClient: plain,
		logger:        cfg.Logger,
	}

	return &Client{
		baseURL: baseURL,
		store:   cfg.Store,
		signals: transport.signals,
		plain:   plain,
		authed:  &http.Client{Transport: transport, Jar: jar, Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}, nil
}

// Signals exposes the hub the transport emits forced-logout and
// forbidden events on.
func (c *Client) Signals() *SignalHub {
	return c.signals
}

// --- auth endpoints ---

// Login exchanges credentials for an access token and user identity.
// The backend also sets the HTTP-only refresh cookie on this response.
// Failures are returned as *APIError with the server message when one
// was provided.
func (c *Client) Login(ctx context.Context, username, password string) (*Credentials, error) {
	body := map[string]string{"username": username, "password": password}
	resp, err := c.postPlain(ctx, "/api/auth/login", body)
	if err != nil {
		return nil, NetworkError(err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := serverMessage(resp)
		resp.Body.Close()
		return nil, Classify(resp.StatusCode, msg)
	}

	var lr loginResponse
	if err := decodeJSON(resp, &lr); err != nil {
		return nil, NetworkError(fmt.Errorf("decoding login response: %w", err))
	}

	if lr.Success && lr.Data.AccessToken != "" {
		return &Credentials{Token: lr.Data.AccessToken, User: lr.Data.User}, nil
	}

	// Older backend deployments answer with the user fields directly
	// and rely solely on the cookie session. Mint an opaque local
	// session marker so the rest of the client has a token to hold.
	if lr.LegacyUserName != "" {
		return &Credentials{
			Token: "session-" + uuid.NewString(),
			User: User{
				UserID:   lr.LegacyUserID,
				Username: lr.LegacyUserName,
				Role:     "user",
			},
		}, nil
	}

	return nil, Classify(http.StatusUnauthorized, lr.Message)
}

// Logout tells the backend to invalidate the refresh cookie. Callers
// treat failures as advisory; local logout proceeds regardless.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.postPlain(ctx, "/api/auth/logout", nil)
	if err != nil {
		return NetworkError(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Classify(resp.StatusCode, "")
	}
	return nil
}

// Refresh exchanges the refresh cookie for fresh credentials.
func (c *Client) Refresh(ctx context.Context) (*Credentials, error) {
	resp, err := c.postPlain(ctx, "/api/auth/refresh", nil)
	if err != nil {
		return nil, NetworkError(err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := serverMessage(resp)
		resp.Body.Close()
		return nil, Classify(resp.StatusCode, msg)
	}

	var env envelope
	if err := decodeJSON(resp, &env); err != nil {
		return nil, NetworkError(fmt.Errorf("decoding refresh response: %w", err))
	}
	if !env.Success || env.Data.AccessToken == "" {
		return nil, Classify(http.StatusUnauthorized, env.Message)
	}
	return &Credentials{Token: env.Data.AccessToken, User: env.Data.User}, nil
}

// Me verifies a bearer token against the whoami endpoint and returns
// the user it belongs to.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, NetworkError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.plain.Do(req)
	if err != nil {
		return nil, NetworkError(err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := serverMessage(resp)
		resp.Body.Close()
		return nil, Classify(resp.StatusCode, msg)
	}

	var body struct {
		Data struct {
			User User `json:"user"`
		} `json:"data"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return nil, NetworkError(fmt.Errorf("decoding whoami response: %w", err))
	}
	return &body.Data.User, nil
}

func (c *Client) postPlain(ctx context.Context, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.plain.Do(req)
}

// --- authenticated request plumbing ---

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return NetworkError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.authed.Do(req)
	if err != nil {
		return NetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(resp)
		resp.Body.Close()
		return Classify(resp.StatusCode, msg)
	}

	if out == nil {
		resp.Body.Close()
		return nil
	}
	if err := decodeJSON(resp, out); err != nil {
		return NetworkError(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// --- report endpoints ---

// ReportQuery is the filter payload shared by the transaction reports.
// Amounts travel as strings, matching what the backend expects from
// the dashboard forms; dates are yyyy-mm-dd.
type ReportQuery struct {
	BranchName string `json:"branchName"`
	Section    string `json:"section"`
	Scheme     string `json:"scheme"`
	MinAmount  string `json:"minAmount"`
	MaxAmount  string `json:"maxAmount"`
	FromDate   string `json:"fromDate"`
	ToDate     string `json:"toDate"`
}

// Rows is a report result set. Column sets vary per report, so rows
// stay dynamic; the CLI derives headers from the first row.
type Rows []map[string]any

type rowsResponse struct {
	Rows Rows `json:"rows"`
}

// HighValueTransactions runs the high-value transaction report.
func (c *Client) HighValueTransactions(ctx context.Context, q ReportQuery) (Rows, error) {
	var out rowsResponse
	if err := c.postJSON(ctx, "/api/high-value-trans", q, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// SuspiciousCashTransactions runs the suspicious cash transaction report.
func (c *Client) SuspiciousCashTransactions(ctx context.Context, q ReportQuery) (Rows, error) {
	var out rowsResponse
	if err := c.postJSON(ctx, "/api/suspicious-cash-trans", q, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// UserRightQuery filters the user-right report.
type UserRightQuery struct {
	Username   string `json:"username,omitempty"`
	BranchName string `json:"branchName,omitempty"`
}

// UserRights runs the user-right report.
func (c *Client) UserRights(ctx context.Context, q UserRightQuery) (Rows, error) {
	var out rowsResponse
	if err := c.postJSON(ctx, "/api/userright", q, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// TransferUserRights reassigns rights between users.
type TransferUserRights struct {
	FromUser string `json:"fromUser"`
	ToUser   string `json:"toUser"`
}

// TransferRights submits a user-right transfer.
func (c *Client) TransferRights(ctx context.Context, t TransferUserRights) error {
	return c.postJSON(ctx, "/api/userright-transfer", t, nil)
}

// --- document endpoints ---

// DocumentQuery filters the document detail listing.
type DocumentQuery struct {
	Keyword  string `json:"keyword,omitempty"`
	FromDate string `json:"fromDate,omitempty"`
	ToDate   string `json:"toDate,omitempty"`
}

// Documents lists document detail rows.
func (c *Client) Documents(ctx context.Context, q DocumentQuery) (Rows, error) {
	var out rowsResponse
	if err := c.postJSON(ctx, "/Documentdtl", q, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// Document is a document record for create and update calls.
type Document struct {
	ID       int    `json:"id,omitempty"`
	Title    string `json:"title"`
	Keyword  string `json:"keyword,omitempty"`
	Content  string `json:"content,omitempty"`
	Category string `json:"category,omitempty"`
}

// CreateDocument creates a document.
func (c *Client) CreateDocument(ctx context.Context, d Document) error {
	return c.postJSON(ctx, "/api/document", d, nil)
}

// UpdateDocument updates an existing document.
func (c *Client) UpdateDocument(ctx context.Context, id int, d Document) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/document/%d", id), d, nil)
}

// Keywords suggests document keywords matching a prefix.
func (c *Client) Keywords(ctx context.Context, keyword string) ([]string, error) {
	var out struct {
		Keywords []string `json:"keywords"`
	}
	path := "/api/keywords?keyword=" + url.QueryEscape(keyword)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Keywords, nil
}

// --- lookup endpoints ---

// Branch is an organization branch.
type Branch struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Branches lists all branches.
func (c *Client) Branches(ctx context.Context) ([]Branch, error) {
	var out struct {
		Branches []Branch `json:"branches"`
	}
	if err := c.getJSON(ctx, "/api/branches", &out); err != nil {
		return nil, err
	}
	return out.Branches, nil
}

// Section is an operational section such as DEPOSIT or LOAN.
type Section struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Sections lists all sections.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var out struct {
		Sections []Section `json:"sections"`
	}
	if err := c.getJSON(ctx, "/api/sections", &out); err != nil {
		return nil, err
	}
	return out.Sections, nil
}

// Users lists backend operator accounts.
func (c *Client) Users(ctx context.Context) (Rows, error) {
	var out struct {
		Users Rows `json:"users"`
	}
	if err := c.getJSON(ctx, "/api/Users", &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// NewUser is the payload for operator account creation.
type NewUser struct {
	UserName               string `json:"userName"`
	UserPassword           string `json:"userPassword"`
	UserType               string `json:"userType"`
	UserAvailabilityStatus string `json:"userAvailabilityStatus"`
	Mobile                 string `json:"mobile"`
	Email                  string `json:"email"`
}

// CreateUser creates an operator account.
func (c *Client) CreateUser(ctx context.Context, u NewUser) error {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/api/usercreatapi", u, &out); err != nil {
		return err
	}
	if !out.Success {
		return Classify(http.StatusBadRequest, out.Message)
	}
	return nil
}

// MenuItem is one backend-supplied report menu entry.
type MenuItem struct {
	Caption string `json:"caption"`
	URL     string `json:"url"`
}

// ReportsMenu fetches the data-driven report menu.
func (c *Client) ReportsMenu(ctx context.Context) ([]MenuItem, error) {
	var out struct {
		MenuItems []MenuItem `json:"menuItems"`
	}
	if err := c.getJSON(ctx, "/api/reports/menu", &out); err != nil {
		return nil, err
	}
	return out.MenuItems, nil
}
