package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"smatrader/src/model"
	"smatrader/src/utils"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 4 * time.Second

	orderPath     = "/api/v3/order"
	testOrderPath = "/api/v3/order/test"
	timePath      = "/api/v3/time"
)

var klinePeriods = map[string]goex.KlinePeriod{
	"1m":  goex.KLINE_PERIOD_1MIN,
	"5m":  goex.KLINE_PERIOD_5MIN,
	"15m": goex.KLINE_PERIOD_15MIN,
	"30m": goex.KLINE_PERIOD_30MIN,
	"1h":  goex.KLINE_PERIOD_1H,
	"4h":  goex.KLINE_PERIOD_4H,
	"1d":  goex.KLINE_PERIOD_1DAY,
}

// marketAPI is the subset of goex used for public market data and the account probe.
type marketAPI interface {
	GetKlineRecords(currency goex.CurrencyPair, period goex.KlinePeriod, size int, optional ...goex.OptionalParameter) ([]goex.Kline, error)
	GetAccount() (*goex.Account, error)
}

// OrderResult is what the exchange reports for an accepted market order.
type OrderResult struct {
	OrderID      string
	ClientID     string
	Status       string
	ExecutedQty  decimal.Decimal
	AvgPrice     decimal.Decimal // zero when the exchange reported no fills
	ValidateOnly bool
}

// BinanceConnector talks to the Binance spot REST API. Klines and the
// account probe go through goex; signed order placement goes through resty.
type BinanceConnector struct {
	apiKey       string
	apiSecret    string
	baseURL      string
	recvWindow   int64
	validateOnly bool

	http   *resty.Client
	market marketAPI
	now    func() time.Time
}

// isRetryableResp only ever retries GET requests: an order POST that timed
// out may still have been executed.
func isRetryableResp(r *resty.Response, err error) bool {
	if r != nil && r.Request != nil && r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	if code >= 500 && code <= 599 {
		return true
	}
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func NewBinanceConnector(cfg Config, apiKey, apiSecret string) (*BinanceConnector, error) {
	baseURL, err := cfg.BaseURL()
	if err != nil {
		return nil, err
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	restyClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	market := binance.NewWithConfig(&goex.APIConfig{
		HttpClient:   httpClient,
		Endpoint:     baseURL,
		ApiKey:       apiKey,
		ApiSecretKey: apiSecret,
	})

	logger.WithFields(map[string]interface{}{
		"connector":     "binance",
		"base_url":      baseURL,
		"validate_only": cfg.OrderValidateOnly,
	}).Info("Binance connector ready")

	return &BinanceConnector{
		apiKey:       apiKey,
		apiSecret:    apiSecret,
		baseURL:      baseURL,
		recvWindow:   cfg.RecvWindow,
		validateOnly: cfg.OrderValidateOnly,
		http:         restyClient,
		market:       market,
		now:          time.Now,
	}, nil
}

func (c *BinanceConnector) BaseURL() string { return c.baseURL }

func currencyPair(symbol model.Symbol) goex.CurrencyPair {
	return goex.NewCurrencyPair(goex.Currency{Symbol: symbol.Base}, goex.Currency{Symbol: symbol.Quote})
}

// FetchCloses returns up to limit closing prices, most recent last.
func (c *BinanceConnector) FetchCloses(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	period, ok := klinePeriods[interval]
	if !ok {
		return nil, fmt.Errorf("fetch closes: unsupported interval %q: %w", interval, ErrAPI)
	}

	klines, err := c.market.GetKlineRecords(currencyPair(symbol), period, limit)
	if err != nil {
		return nil, classifyTransportErr("fetch closes", err)
	}

	closes := make([]decimal.Decimal, 0, len(klines))
	for _, k := range klines {
		closes = append(closes, decimal.NewFromFloat(k.Close))
	}

	logger.WithFields(map[string]interface{}{
		"connector": "binance",
		"symbol":    symbol.String(),
		"interval":  interval,
		"count":     len(closes),
	}).Debug("Fetched closes")
	return closes, nil
}

// CheckCredentials performs a signed account read; it fails when the key pair is invalid.
func (c *BinanceConnector) CheckCredentials(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.apiKey == "" || c.apiSecret == "" {
		return fmt.Errorf("check credentials: api key not configured: %w", ErrAPI)
	}
	if _, err := c.market.GetAccount(); err != nil {
		return classifyTransportErr("check credentials", err)
	}
	return nil
}

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

func (c *BinanceConnector) GetServerTime(ctx context.Context) (time.Time, error) {
	resp, err := c.http.R().SetContext(ctx).Get(timePath)
	if err != nil {
		return time.Time{}, classifyTransportErr("server time", err)
	}
	if resp.IsError() {
		return time.Time{}, decodeAPIError(resp, false)
	}

	var out serverTimeResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return time.Time{}, fmt.Errorf("server time: decode response: %w: %w", ErrAPI, err)
	}
	if out.ServerTime <= 0 {
		return time.Time{}, fmt.Errorf("server time: missing serverTime in %q: %w", string(resp.Body()), ErrAPI)
	}
	return time.UnixMilli(out.ServerTime).UTC(), nil
}

func signQuery(query, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

type orderFill struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

type orderResponse struct {
	Symbol              string          `json:"symbol"`
	OrderID             int64           `json:"orderId"`
	ClientOrderID       string          `json:"clientOrderId"`
	Status              string          `json:"status"`
	ExecutedQty         decimal.Decimal `json:"executedQty"`
	CummulativeQuoteQty decimal.Decimal `json:"cummulativeQuoteQty"`
	Fills               []orderFill     `json:"fills"`
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func decodeAPIError(resp *resty.Response, order bool) error {
	var body errorResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Msg == "" {
		body.Msg = string(resp.Body())
	}
	return newAPIError(resp.StatusCode(), body.Code, body.Msg, order)
}

// SubmitMarketOrder places one signed MARKET order. It is never retried here.
func (c *BinanceConnector) SubmitMarketOrder(ctx context.Context, symbol model.Symbol, side model.Side, quantity decimal.Decimal) (*OrderResult, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("submit order: quantity must be positive: %w", ErrRejected)
	}

	clientID := "sma-" + uuid.NewString()[:18]
	params := url.Values{}
	params.Set("symbol", symbol.String())
	params.Set("side", side.String())
	params.Set("type", "MARKET")
	params.Set("quantity", quantity.String())
	params.Set("newClientOrderId", clientID)
	params.Set("newOrderRespType", "FULL")
	if c.recvWindow > 0 {
		params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
	}
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))

	query := params.Encode()
	query += "&signature=" + signQuery(query, c.apiSecret)

	path := orderPath
	if c.validateOnly {
		path = testOrderPath
	}

	entry := logger.WithFields(map[string]interface{}{
		"connector": "binance",
		"symbol":    symbol.String(),
		"side":      side,
		"quantity":  quantity.String(),
		"path":      path,
	})
	entry.Info("Submitting market order")

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryString(query).
		Post(path)
	if err != nil {
		entry.WithError(err).Error("Order request failed")
		return nil, classifyTransportErr("submit order", err)
	}
	if resp.IsError() {
		apiErr := decodeAPIError(resp, true)
		entry.WithError(apiErr).Error("Order refused")
		return nil, apiErr
	}

	if c.validateOnly {
		return &OrderResult{ClientID: clientID, Status: "VALIDATED", ValidateOnly: true}, nil
	}

	var out orderResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("submit order: decode response: %w: %w", ErrAPI, err)
	}

	result := &OrderResult{
		OrderID:     strconv.FormatInt(out.OrderID, 10),
		ClientID:    out.ClientOrderID,
		Status:      out.Status,
		ExecutedQty: out.ExecutedQty,
	}
	if out.ExecutedQty.IsPositive() {
		result.AvgPrice = out.CummulativeQuoteQty.Div(out.ExecutedQty).Round(8)
	}

	entry.WithFields(map[string]interface{}{
		"order_id":  result.OrderID,
		"status":    result.Status,
		"avg_price": result.AvgPrice.String(),
	}).Info("Order accepted")
	return result, nil
}

// Ping checks connectivity and clock skew against the exchange.
func (c *BinanceConnector) Ping(ctx context.Context) (time.Duration, error) {
	serverTime, err := c.GetServerTime(ctx)
	if err != nil {
		return 0, err
	}
	skew := c.now().Sub(serverTime)
	if skew > time.Second || skew < -time.Second {
		logger.WithField("skew", skew.String()).Warn("Local clock differs from exchange time")
	}
	return skew, nil
}

// IntervalSupported reports whether interval can be fetched.
func IntervalSupported(interval string) bool {
	if _, ok := klinePeriods[interval]; !ok {
		return false
	}
	_, err := utils.IntervalDuration(interval)
	return err == nil
}
