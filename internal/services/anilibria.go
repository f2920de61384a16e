// Anilibria public API implementation of [Catalog]
//
// Every query is a form-encoded POST to {base}/public/api/index.php.
package services

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

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://www.anilibria.tv"
	DefaultUserAgent = "librix/0.1"
	DefaultPageSize  = 2000
	apiPath          = "/public/api/index.php"
)

var _ Catalog = (*AnilibriaService)(nil)

// ClientOptions configures an [AnilibriaService].
type ClientOptions struct {
	BaseURL      string
	UserAgent    string
	SessionToken string
	Timeout      time.Duration
	RateLimit    float64 // requests per second; zero disables limiting
	HTTPClient   *http.Client
}

// AnilibriaService implements [Catalog] against the Anilibria public API.
type AnilibriaService struct {
	baseURL    string
	userAgent  string
	authorized bool
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAnilibriaService creates a catalog client. Missing options fall back to defaults.
func NewAnilibriaService(opts ClientOptions) *AnilibriaService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: opts.Timeout}
	} else if opts.Timeout > 0 && base.Timeout == 0 {
		copied := *base
		copied.Timeout = opts.Timeout
		base = &copied
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &AnilibriaService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		authorized: opts.SessionToken != "",
		httpClient: NewSessionClient(base, opts.SessionToken),
		limiter:    limiter,
	}
}

// NewAnilibriaServiceFromConfig creates a catalog client from the [api] and [credentials] config sections.
func NewAnilibriaServiceFromConfig(cfg *shared.Config) *AnilibriaService {
	return NewAnilibriaService(ClientOptions{
		BaseURL:      cfg.API.BaseURL,
		UserAgent:    cfg.API.UserAgent,
		SessionToken: cfg.Credentials.SessionToken,
		Timeout:      cfg.API.Timeout(),
		RateLimit:    cfg.API.RateLimit,
	})
}

// Name returns the name of the service
func (s *AnilibriaService) Name() string { return "Anilibria" }

// Authorized reports whether a session token was configured.
func (s *AnilibriaService) Authorized() bool { return s.authorized }

// FetchPage retrieves one page of the catalog ordered by the server's last-update time.
func (s *AnilibriaService) FetchPage(ctx context.Context, page, pageSize int) ([]models.ReleaseRecord, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", shared.ErrInvalidArgument, page)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: page size must be >= 1, got %d", shared.ErrInvalidArgument, pageSize)
	}

	params := url.Values{}
	params.Set("query", "list")
	params.Set("page", strconv.Itoa(page))
	params.Set("perPage", strconv.Itoa(pageSize))

	var result envelope[itemsPage[models.ReleaseRecord]]
	if err := s.doRequest(ctx, params, &result); err != nil {
		return nil, err
	}
	return result.Data.Items, nil
}

// FetchFavorites retrieves the favorite releases of the signed-in user.
func (s *AnilibriaService) FetchFavorites(ctx context.Context) ([]models.FavoriteItem, error) {
	if !s.authorized {
		return nil, shared.ErrNotAuthenticated
	}

	params := url.Values{}
	params.Set("query", "favorites")
	params.Set("page", "1")
	params.Set("perPage", strconv.Itoa(DefaultPageSize))

	var result envelope[itemsPage[models.ReleaseRecord]]
	if err := s.doRequest(ctx, params, &result); err != nil {
		return nil, err
	}

	favorites := make([]models.FavoriteItem, 0, len(result.Data.Items))
	for _, rec := range result.Data.Items {
		favorites = append(favorites, models.FavoriteItem{ReleaseID: rec.ID, Rating: rec.Rating()})
	}
	return favorites, nil
}

// FetchCurrentUser retrieves the signed-in user.
func (s *AnilibriaService) FetchCurrentUser(ctx context.Context) (*models.User, error) {
	if !s.authorized {
		return nil, shared.ErrNotAuthenticated
	}

	params := url.Values{}
	params.Set("query", "user")

	var result envelope[models.User]
	if err := s.doRequest(ctx, params, &result); err != nil {
		return nil, err
	}
	if result.Data.ID == 0 {
		return nil, fmt.Errorf("%w: user response has no id", shared.ErrAPIRequest)
	}
	return &result.Data, nil
}

// DownloadPoster fetches a poster image. Relative paths are resolved against the base URL.
func (s *AnilibriaService) DownloadPoster(ctx context.Context, poster string) ([]byte, error) {
	if poster == "" {
		return nil, fmt.Errorf("%w: empty poster path", shared.ErrInvalidArgument)
	}

	target := poster
	if !strings.HasPrefix(poster, "http://") && !strings.HasPrefix(poster, "https://") {
		target = s.baseURL + "/" + strings.TrimLeft(poster, "/")
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download poster: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download poster: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poster data: %w", err)
	}
	return data, nil
}

// doRequest posts params to the API endpoint and decodes the envelope into result.
func (s *AnilibriaService) doRequest(ctx context.Context, params url.Values, result interface{ failure() error }) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+apiPath, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %w: %s request", shared.ErrAPIRequest, shared.ErrTimeout, params.Get("query"))
		}
		return fmt.Errorf("%w: %s request failed: %v", shared.ErrAPIRequest, params.Get("query"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d", shared.ErrAPIRequest, params.Get("query"), resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, params.Get("query"), err)
	}

	return result.failure()
}

func (s *AnilibriaService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// failure converts a status:false envelope into an error.
func (e *envelope[T]) failure() error {
	if e.Status {
		return nil
	}
	if e.Error != nil && e.Error.Message != "" {
		return fmt.Errorf("%w: %s (code %d)", shared.ErrAPIRequest, e.Error.Message, e.Error.Code)
	}
	return fmt.Errorf("%w: request unsuccessful", shared.ErrAPIRequest)
}
