// Package gateway is the HTTP client for the check-in backend. It carries a
// bearer token when one is stored and transparently refreshes it once when a
// request comes back 401.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kaimanfr/checkin/internal/models"
	"github.com/kaimanfr/checkin/internal/services"
)

// CredentialStore is the session capability the client depends on. The
// secure persistence behind it is the caller's concern.
type CredentialStore interface {
	Session() (models.Session, error)
	SaveSession(models.Session) error
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialStore
	log     *logrus.Entry
}

// New builds a client for the given API base URL.
func New(baseURL string, creds CredentialStore, log *logrus.Entry) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		creds:   creds,
		log:     log,
	}
}

type registerResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Register exchanges the locally stored email for a token pair and persists
// it. Fails with a missing-email error when no email is known yet.
func (c *Client) Register(ctx context.Context) error {
	sess, err := c.creds.Session()
	if err != nil {
		return err
	}
	if strings.TrimSpace(sess.Email) == "" {
		return services.NewMissingEmailError("no email available for registration")
	}
	var out registerResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{"username": sess.Email}, &out, false); err != nil {
		return err
	}
	sess.AccessToken = out.Token
	sess.RefreshToken = out.RefreshToken
	if err := c.creds.SaveSession(sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	c.log.Debug("registered and stored fresh token pair")
	return nil
}

// PostInitialAnswers submits the one-time profile answer map.
func (c *Client) PostInitialAnswers(ctx context.Context, answers map[string]string) (*models.CurrentUser, error) {
	var user models.CurrentUser
	if err := c.withAuthRetry(ctx, http.MethodPost, "/api/metric/initial", answers, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type metricPayload struct {
	ID        string               `json:"id"`
	Entries   []models.MetricEntry `json:"datas"`
	Date      string               `json:"date"`
	Latitude  *float64             `json:"latitude,omitempty"`
	Longitude *float64             `json:"longitude,omitempty"`
}

// PostMetric submits a daily report. Coordinates travel only when attached.
func (c *Client) PostMetric(ctx context.Context, report *models.DailyMetricsReport) (*models.CurrentUser, error) {
	payload := metricPayload{
		ID:      report.ID,
		Entries: report.Entries,
		Date:    report.Timestamp.UTC().Format(time.RFC3339),
	}
	if report.Coordinates != nil {
		payload.Latitude = &report.Coordinates.Latitude
		payload.Longitude = &report.Coordinates.Longitude
	}
	var user models.CurrentUser
	if err := c.withAuthRetry(ctx, http.MethodPost, "/api/metric", payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RetrieveUser fetches the current user with metric history and friends.
func (c *Client) RetrieveUser(ctx context.Context) (*models.CurrentUser, error) {
	var user models.CurrentUser
	if err := c.withAuthRetry(ctx, http.MethodGet, "/api/user/current", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser sets the profile fields collected after login.
func (c *Client) UpdateUser(ctx context.Context, lastname, firstname string, birthdate time.Time) (*models.CurrentUser, error) {
	body := map[string]string{
		"lastname":  lastname,
		"firstname": firstname,
		"birthdate": birthdate.Format("2006-01-02"),
	}
	var user models.CurrentUser
	if err := c.withAuthRetry(ctx, http.MethodPut, "/api/user/current", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RetrieveFriends lists the users sharing their reports with this account.
func (c *Client) RetrieveFriends(ctx context.Context) ([]models.BasicUser, error) {
	var friends []models.BasicUser
	if err := c.withAuthRetry(ctx, http.MethodGet, "/api/friend/listing", nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// DeleteFriend removes a sharing link.
func (c *Client) DeleteFriend(ctx context.Context, id int) error {
	return c.withAuthRetry(ctx, http.MethodDelete, fmt.Sprintf("/api/friend/%d", id), nil, nil)
}

// withAuthRetry performs the request and, on an auth-expired response,
// re-registers once and retries once. A second 401 is terminal; no further
// automatic retries happen.
func (c *Client) withAuthRetry(ctx context.Context, method, path string, body, out any) error {
	err := c.do(ctx, method, path, body, out, true)
	if !services.HasCode(err, services.ErrorAuthExpired) {
		return err
	}
	c.log.Debug("token expired, attempting one re-registration")
	if rerr := c.Register(ctx); rerr != nil {
		return rerr
	}
	err = c.do(ctx, method, path, body, out, true)
	if services.HasCode(err, services.ErrorAuthExpired) {
		return services.NewAuthExpiredError("request rejected again after token refresh")
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, bearer bool) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer {
		sess, err := c.creds.Session()
		if err != nil {
			return err
		}
		if sess.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return services.NewNetworkError(fmt.Sprintf("%s %s: %v", method, path, err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return services.NewAuthExpiredError(fmt.Sprintf("%s %s: unauthorized", method, path))
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.NewNetworkError(fmt.Sprintf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.NewNetworkError(fmt.Sprintf("%s %s: decode response: %v", method, path, err))
	}
	return nil
}
