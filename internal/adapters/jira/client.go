// Package jira is a thin client for the Jira Cloud REST and Agile APIs,
// authenticated with an account email and API token.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sprintsight/sprintsight/internal/domain"
)

type Client struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a client for one credential set. The timeout bounds
// every outbound call; a slow tracker fails the call rather than hanging
// the ingestion path.
func NewClient(baseURL, email, token string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) apiURL(path string, q url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, method, u string) (map[string]any, error) {
	if c.baseURL == "" {
		return nil, errors.New("jira: empty baseURL")
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, classifyErr(ctx.Err())
			case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.email, c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = classifyErr(err)
			continue
		}
		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			msg := strings.TrimSpace(string(b))
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("%w: status=%d body=%s", domain.ErrTrackerAuth, resp.StatusCode, msg)
			}
			// retry on 429/5xx only
			err := fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, msg)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = err
				continue
			}
			return nil, err
		}
		var out map[string]any
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, lastErr
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrTrackerTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTrackerUnreachable, err)
}

// Myself performs the lightweight authenticated call used to validate
// credentials. It never touches any board or issue data.
func (c *Client) Myself(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/3/myself", nil))
	return err
}

// Boards lists agile boards, paginated.
func (c *Client) Boards(ctx context.Context, startAt, max int) (map[string]any, error) {
	q := url.Values{}
	q.Set("startAt", strconv.Itoa(startAt))
	if max > 0 {
		q.Set("maxResults", strconv.Itoa(max))
	}
	return c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/agile/1.0/board", q))
}

// Sprints lists sprints on a board, paginated.
func (c *Client) Sprints(ctx context.Context, boardID int64, startAt int) (map[string]any, error) {
	q := url.Values{}
	q.Set("startAt", strconv.Itoa(startAt))
	q.Set("maxResults", "50")
	path := "/rest/agile/1.0/board/" + strconv.FormatInt(boardID, 10) + "/sprint"
	return c.doJSON(ctx, http.MethodGet, c.apiURL(path, q))
}

// SprintIssues lists issues in a sprint with the fields the normalizer
// needs, paginated.
func (c *Client) SprintIssues(ctx context.Context, sprintID int64, startAt, max int) (map[string]any, error) {
	q := url.Values{}
	q.Set("startAt", strconv.Itoa(startAt))
	if max > 0 {
		q.Set("maxResults", strconv.Itoa(max))
	}
	q.Set("fields", "key,summary,status,issuetype,assignee,priority,created,resolutiondate,flagged,customfield_10016,customfield_10106,customfield_10002,customfield_10004")
	path := "/rest/agile/1.0/sprint/" + strconv.FormatInt(sprintID, 10) + "/issue"
	return c.doJSON(ctx, http.MethodGet, c.apiURL(path, q))
}
