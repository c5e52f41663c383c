// Package synology talks to the Synology Photos web API of a NAS.
package synology

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brandon/onthisday/internal/config"
	"github.com/brandon/onthisday/pkg/types"
)

// PageSize is the number of items requested per listing page
const PageSize = 500

const listAdditional = `["thumbnail","resolution","orientation","video_convert","video_meta"]`

// PageObserver is told about every listing page received
type PageObserver interface {
	PageFetched(offset, count, total int)
}

// Client is a Synology Photos API client. It holds no session state; every
// top-level operation authenticates on its own.
type Client struct {
	baseURL  string
	account  string
	password string
	space    string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *logrus.Logger
	observer PageObserver
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates a client for the configured NAS
func NewClient(cfg *config.NASConfig, logger *logrus.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		// Self-hosted NAS with a self-signed certificate. Scoped to this transport.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	space := "Foto"
	if cfg.TeamSpace {
		space = "FotoTeam"
	}

	limit := rate.Limit(cfg.PageRate)
	if cfg.PageRate <= 0 {
		limit = rate.Inf
	}

	return &Client{
		baseURL:  NormalizeHost(cfg.Host),
		account:  cfg.Account,
		password: cfg.Password,
		space:    space,
		http:     &http.Client{Transport: transport, Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// NormalizeHost prefixes https:// when no scheme is given and drops a trailing slash
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return strings.TrimSuffix(host, "/")
}

// SetObserver registers an observer for listing progress
func (c *Client) SetObserver(o PageObserver) {
	c.observer = o
}

// BaseURL returns the normalized NAS address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticate logs in and returns a session id
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("api", "SYNO.API.Auth")
	q.Set("version", "3")
	q.Set("method", "login")
	q.Set("account", c.account)
	q.Set("passwd", c.password)
	q.Set("session", "FileStation")
	q.Set("format", "sid")

	log := c.logger.WithFields(logrus.Fields{"host": c.baseURL, "account": c.account})
	log.Info("Authenticating with NAS")

	status, body, err := c.get(ctx, "/webapi/auth.cgi", q)
	if err != nil {
		log.WithError(err).Error("Authentication request failed")
		return "", fmt.Errorf("authentication request failed: %w", err)
	}
	if status < 200 || status > 299 {
		log.WithField("status", status).Error("Authentication failed")
		return "", &AuthenticationError{Payload: string(body)}
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.WithError(err).Error("Authentication response is not JSON")
		return "", &AuthenticationError{Payload: string(body), Err: err}
	}
	if !resp.Success {
		log.WithField("response", string(body)).Error("Authentication failed")
		return "", &AuthenticationError{Payload: string(body)}
	}

	var data struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.SID == "" {
		return "", &AuthenticationError{Payload: string(body), Err: err}
	}

	log.Info("Successfully authenticated, got session ID")
	return data.SID, nil
}

// FetchPhotos lists every photo in the library, newest first. Pages are
// requested one after another until a page comes back shorter than PageSize,
// so a library whose size is an exact multiple of PageSize costs one extra
// empty request. Any failing page aborts the whole listing.
func (c *Client) FetchPhotos(ctx context.Context, sid string) ([]types.Photo, error) {
	c.probeAPIInfo(ctx)

	var all []types.Photo
	offset := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Offset: offset, Err: err}
		}

		page, err := c.fetchPage(ctx, sid, offset)
		if err != nil {
			return nil, err
		}

		for i := range page {
			if thumb := page[i].Additional.Thumbnail; thumb != nil {
				page[i].ThumbnailURL = c.ThumbnailURL(page[i].ID, thumb.CacheKey, sid)
			}
		}
		all = append(all, page...)

		if c.observer != nil {
			c.observer.PageFetched(offset, len(page), len(all))
		}

		if len(page) < PageSize {
			break
		}
		offset += PageSize
	}

	c.logger.WithField("count", len(all)).Info("Successfully fetched photos")
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, sid string, offset int) ([]types.Photo, error) {
	q := url.Values{}
	q.Set("api", "SYNO."+c.space+".Browse.Item")
	q.Set("version", "1")
	q.Set("method", "list")
	q.Set("additional", listAdditional)
	q.Set("type", "photo")
	q.Set("sort_by", "takentime")
	q.Set("sort_direction", "desc")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(PageSize))
	q.Set("_sid", sid)

	c.logger.WithField("offset", offset).Debug("Fetching photos page")

	status, body, err := c.get(ctx, "/webapi/entry.cgi", q)
	if err != nil {
		return nil, &FetchError{Offset: offset, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &FetchError{Offset: offset, StatusCode: status, Payload: string(body)}
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Offset: offset, Payload: string(body), Err: err}
	}
	if !resp.Success {
		c.logger.WithField("response", string(body)).Error("Synology API returned error")
		return nil, &FetchError{Offset: offset, Payload: string(body)}
	}

	var data struct {
		List []types.Photo `json:"list"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, &FetchError{Offset: offset, Payload: string(body), Err: err}
	}
	return data.List, nil
}

// probeAPIInfo queries the API catalogue before listing; failures are only logged
func (c *Client) probeAPIInfo(ctx context.Context) {
	q := url.Values{}
	q.Set("api", "SYNO.API.Info")
	q.Set("version", "1")
	q.Set("method", "query")
	q.Set("query", "all")

	if _, _, err := c.get(ctx, "/webapi/query.cgi", q); err != nil {
		c.logger.WithError(err).Warn("API info query failed")
	}
}

// ThumbnailURL builds the download URL of a photo's XL thumbnail
func (c *Client) ThumbnailURL(id int64, cacheKey, sid string) string {
	q := url.Values{}
	q.Set("api", "SYNO."+c.space+".Thumbnail")
	q.Set("version", "1")
	q.Set("method", "get")
	q.Set("mode", "download")
	q.Set("id", strconv.FormatInt(id, 10))
	q.Set("type", "unit")
	q.Set("size", "xl")
	q.Set("cache_key", cacheKey)
	q.Set("_sid", sid)
	return c.baseURL + "/webapi/entry.cgi?" + q.Encode()
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
