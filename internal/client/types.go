package client

// Envelope is the {status?, data?} wrapper every list endpoint returns.
type Envelope[T any] struct {
	Status *Status `json:"status,omitempty"`
	Data   T       `json:"data"`
}

type Status struct {
	Code    FlexString `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

type Stock struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Sector    string `json:"sector"`
	Exchange  string `json:"exchange"`
	AssetType string `json:"asset_type"`
	Currency  string `json:"currency"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// StockQuote is one intraday sample. CreatedAt uses "2006-01-02 15:04:05".
type StockQuote struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	PriceCurrent  float64 `json:"price_current"`
	ChangePrice   float64 `json:"change_price"`
	ChangePercent float64 `json:"change_percent"`
	EMA20         float64 `json:"ema_20"`
	EMA100        float64 `json:"ema_100"`
	TanhEMA       float64 `json:"tanh_ema"`
	ChangeEMA20   float64 `json:"change_ema_20"`
	ChangeTanhEMA float64 `json:"change_tanh_ema"`
	EMATrend      float64 `json:"ema_trend"`
	CreatedAt     string  `json:"created_at"`
}

type CompanyNews struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Headline  string `json:"headline"`
	Source    string `json:"source"`
	Summary   string `json:"summary"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PushSubscription is the platform subscription as sent to the server.
type PushSubscription struct {
	Endpoint string               `json:"endpoint"`
	Keys     PushSubscriptionKeys `json:"keys"`
}

type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}
