package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL      = "http://localhost:8080"
	DefaultPushListen   = "127.0.0.1:8765"
	DefaultPollInterval = 5 * time.Minute
)

type Options struct {
	BaseURL      string        `long:"base-url" env:"SUNSTOCK_BASE_URL" description:"Dashboard server origin (e.g. https://stocks.example.com)"`
	APIBaseURL   string        `long:"api-base-url" env:"SUNSTOCK_API_BASE_URL" description:"API base URL for /v1 routes; defaults to the base URL"`
	Email        string        `long:"email" env:"SUNSTOCK_EMAIL" description:"Account email used when no session is stored"`
	Password     string        `long:"password" env:"SUNSTOCK_PASSWORD" description:"Account password used when no session is stored"`
	Symbol       string        `long:"symbol" env:"SUNSTOCK_SYMBOL" description:"Symbol to open on startup"`
	Watchlist    string        `long:"watchlist" env:"SUNSTOCK_WATCHLIST" description:"YAML watchlist file pinning symbols"`
	Headless     bool          `long:"headless" env:"SUNSTOCK_HEADLESS" description:"Run the terminal dashboard instead of the tray (GUI builds only)"`
	PushListen   string        `long:"push-listen" env:"SUNSTOCK_PUSH_LISTEN" description:"Listen address for the local push endpoint"`
	ProfileDir   string        `long:"profile-dir" env:"SUNSTOCK_PROFILE_DIR" description:"Directory holding the client profile database"`
	PollInterval time.Duration `long:"poll-interval" env:"SUNSTOCK_POLL_INTERVAL" description:"Snapshot poll interval while a live stream is down"`
	Logout       bool          `long:"logout" description:"Clear the stored session and exit"`
	Debug        bool          `long:"debug" env:"SUNSTOCK_DEBUG" description:"Enable verbose debug output"`
}

// Endpoints is every URL the client talks to, derived from the configured
// origin and API base.
type Endpoints struct {
	Origin           string
	APIBase          string
	LoginURL         string
	RefreshURL       string
	StocksURL        string
	StockQuotesURL   string
	StockDailyURL    string
	CompanyNewsURL   string
	VAPIDKeyURL      string
	SubscriptionsURL string
	QuotesWSURL      string
	AlertsWSURL      string
}

const (
	LoginPath         = "/v1/login"
	RefreshPath       = "/v1/refresh"
	StocksPath        = "/v1/stocks"
	StockQuotesPath   = "/v1/stock-quotes"
	StockDailyPath    = "/v1/stock-daily"
	CompanyNewsPath   = "/v1/company-news"
	vapidKeyPath      = "/api/v1/push/vapid-public-key"
	subscriptionsPath = "/api/v1/push/subscriptions"
	quotesWSPath      = "/api/quotes/ws"
	alertsWSPath      = "/api/alerts/ws"
)

func ParseOptions() (Options, error) {
	_ = godotenv.Load()
	opts := Options{}
	if _, err := flags.Parse(&opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// ApplyDefaults fills values that stay empty after CLI, env and saved
// settings have been merged.
func ApplyDefaults(opts Options) Options {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(opts.PushListen) == "" {
		opts.PushListen = DefaultPushListen
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	opts.Symbol = strings.ToUpper(strings.TrimSpace(opts.Symbol))
	return opts
}

func ValidateRequired(opts Options) error {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return errors.New("base URL is required")
	}
	if (strings.TrimSpace(opts.Email) == "") != (strings.TrimSpace(opts.Password) == "") {
		return errors.New("email and password must be set together")
	}
	return nil
}

func BuildEndpoints(rawBaseURL, rawAPIBaseURL string) (Endpoints, error) {
	origin, err := normalizeOrigin(rawBaseURL)
	if err != nil {
		return Endpoints{}, err
	}
	apiBase := origin.String()
	if strings.TrimSpace(rawAPIBaseURL) != "" {
		if apiBase, err = normalizeAPIBase(rawAPIBaseURL); err != nil {
			return Endpoints{}, err
		}
	}
	ws := *origin
	if strings.EqualFold(origin.Scheme, "https") {
		ws.Scheme = "wss"
	} else {
		ws.Scheme = "ws"
	}
	return Endpoints{
		Origin:           origin.String(),
		APIBase:          apiBase,
		LoginURL:         apiBase + LoginPath,
		RefreshURL:       apiBase + RefreshPath,
		StocksURL:        apiBase + StocksPath,
		StockQuotesURL:   apiBase + StockQuotesPath,
		StockDailyURL:    apiBase + StockDailyPath,
		CompanyNewsURL:   apiBase + CompanyNewsPath,
		VAPIDKeyURL:      origin.String() + vapidKeyPath,
		SubscriptionsURL: origin.String() + subscriptionsPath,
		QuotesWSURL:      ws.String() + quotesWSPath,
		AlertsWSURL:      ws.String() + alertsWSPath,
	}, nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("expected absolute URL like https://example.com")
	}
	if !strings.EqualFold(parsed.Scheme, "http") && !strings.EqualFold(parsed.Scheme, "https") {
		return nil, errors.New("URL scheme must be http or https")
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.User = nil
	return parsed, nil
}

// normalizeOrigin reduces a pasted page or API URL to scheme://host.
func normalizeOrigin(raw string) (*url.URL, error) {
	parsed, err := parseHTTPURL(raw)
	if err != nil {
		return nil, err
	}
	parsed.Path = ""
	parsed.RawPath = ""
	return parsed, nil
}

func normalizeAPIBase(raw string) (string, error) {
	parsed, err := parseHTTPURL(raw)
	if err != nil {
		return "", err
	}
	path := strings.TrimRight(parsed.Path, "/")
	// A pasted /v1/... route collapses to the base that serves it.
	if i := strings.Index(path, "/v1"); i >= 0 && (len(path) == i+3 || path[i+3] == '/') {
		path = path[:i]
	}
	parsed.Path = path
	parsed.RawPath = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}
