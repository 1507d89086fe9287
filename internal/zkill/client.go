package zkill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ErrLookup marks a killmail whose value could not be resolved.
var ErrLookup = errors.New("kill value lookup")

// Client resolves killmail values against the zKillboard REST API.
type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
	log       *slog.Logger
}

func NewClient(baseURL, userAgent string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpc:     &http.Client{Timeout: 15 * time.Second},
		log:       logger,
	}
}

func (c *Client) url(killID int64) string {
	return fmt.Sprintf("%s/killID/%d/", c.baseURL, killID)
}

// KillValue returns the total value of a killmail, truncated to whole units.
// The API answers with a one element array: [{"zkb": {"totalValue": 1234.5}}].
func (c *Client) KillValue(ctx context.Context, killID int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(killID), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %d: %w", ErrLookup, killID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d: status %d", ErrLookup, killID, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: %d: read body: %w", ErrLookup, killID, err)
	}
	return parseTotalValue(killID, body)
}

func parseTotalValue(killID int64, body []byte) (int64, error) {
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("%w: %d: malformed response", ErrLookup, killID)
	}
	v := gjson.GetBytes(body, "0.zkb.totalValue")
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %d: no totalValue in response", ErrLookup, killID)
	}
	d, err := decimal.NewFromString(v.Raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %d: totalValue %q: %w", ErrLookup, killID, v.Raw, err)
	}
	return d.IntPart(), nil
}
