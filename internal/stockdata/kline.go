package stockdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "stockdata")

// HTTPClient is shared by every data source.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// KlineData is one OHLCV bar.
type KlineData struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume float64 `json:"volume"`
	Amount float64 `json:"amount"`
}

// KlineResponse is returned by the kline endpoint.
type KlineResponse struct {
	Code   string      `json:"code"`
	Period string      `json:"period"`
	Source string      `json:"source"`
	Data   []KlineData `json:"data"`
}

var aShareCode = regexp.MustCompile(`^\d{6}$`)

// IsAShareCode reports whether code is a bare six-digit Shanghai/Shenzhen code.
func IsAShareCode(code string) bool {
	return aShareCode.MatchString(code)
}

// GetKline fetches up to limit bars of the given period ("daily", "weekly",
// "monthly"), trying every source that supports the code in order.
func GetKline(ctx context.Context, code, period string, limit int) (*KlineResponse, error) {
	if period == "" {
		period = "daily"
	}
	if limit <= 0 {
		limit = 250
	}

	var lastErr error
	for _, src := range sourcesFor(code) {
		data, err := fetchWithRetry(ctx, src, code, period, limit)
		if err == nil && len(data) > 0 {
			return &KlineResponse{Code: code, Period: period, Source: src.Name(), Data: data}, nil
		}
		if err == nil {
			err = fmt.Errorf("empty response")
		}
		log.WithError(err).Warnf("%s: kline %s/%s failed", src.Name(), code, period)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no data source for %q", code)
	}
	return nil, errors.Wrapf(lastErr, "fetch kline %s", code)
}

func newRequest(ctx context.Context, url, referer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return req, nil
}

func doRequest(req *http.Request) ([]byte, error) {
	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}
	return body, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// sinaSource serves A-share daily/weekly/monthly bars.
type sinaSource struct {
	baseURL string
}

func (s *sinaSource) Name() string { return "sina" }

func (s *sinaSource) Supports(code string) bool { return IsAShareCode(code) }

func (s *sinaSource) Fetch(ctx context.Context, code, period string, limit int) ([]KlineData, error) {
	symbol := "sz" + code
	if strings.HasPrefix(code, "6") {
		symbol = "sh" + code
	}

	scale := map[string]string{
		"daily":   "240",
		"weekly":  "1680",
		"monthly": "7200",
	}[period]
	if scale == "" {
		scale = "240"
	}

	url := fmt.Sprintf("%s/cn/api/jsonp_v2.php/var__%s_%s/CN_MarketDataService.getKLineData?symbol=%s&scale=%s&ma=no&datalen=%d",
		s.baseURL, symbol, scale, symbol, scale, limit)

	req, err := newRequest(ctx, url, "https://finance.sina.com.cn")
	if err != nil {
		return nil, err
	}
	body, err := doRequest(req)
	if err != nil {
		return nil, err
	}

	// JSONP: var__sh600000_240=([...]);
	text := string(body)
	start := strings.Index(text, "(")
	end := strings.LastIndex(text, ")")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("malformed jsonp response")
	}

	var rawData []struct {
		Day    string `json:"day"`
		Open   string `json:"open"`
		Close  string `json:"close"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Volume string `json:"volume"`
	}
	if err := json.Unmarshal([]byte(text[start+1:end]), &rawData); err != nil {
		return nil, err
	}

	result := make([]KlineData, 0, len(rawData))
	for _, item := range rawData {
		open, _ := strconv.ParseFloat(item.Open, 64)
		closePrice, _ := strconv.ParseFloat(item.Close, 64)
		high, _ := strconv.ParseFloat(item.High, 64)
		low, _ := strconv.ParseFloat(item.Low, 64)
		volume, _ := strconv.ParseFloat(item.Volume, 64)

		result = append(result, KlineData{
			Date:   dateOnly(item.Day),
			Open:   open,
			Close:  closePrice,
			High:   high,
			Low:    low,
			Volume: volume,
		})
	}
	return result, nil
}

// emSource is the EastMoney fallback for A-share codes.
type emSource struct {
	baseURL string
}

func (s *emSource) Name() string { return "eastmoney" }

func (s *emSource) Supports(code string) bool { return IsAShareCode(code) }

func (s *emSource) Fetch(ctx context.Context, code, period string, limit int) ([]KlineData, error) {
	secid := "0." + code
	if strings.HasPrefix(code, "6") {
		secid = "1." + code
	}

	klt := map[string]string{
		"daily":   "101",
		"weekly":  "102",
		"monthly": "103",
	}[period]
	if klt == "" {
		klt = "101"
	}

	url := fmt.Sprintf("%s/api/qt/stock/kline/get?secid=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57&klt=%s&fqt=1&end=20500101&lmt=%d",
		s.baseURL, secid, klt, limit)

	req, err := newRequest(ctx, url, "https://quote.eastmoney.com")
	if err != nil {
		return nil, err
	}
	body, err := doRequest(req)
	if err != nil {
		return nil, err
	}

	var emResp struct {
		Data struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &emResp); err != nil {
		return nil, err
	}

	result := make([]KlineData, 0, len(emResp.Data.Klines))
	for _, line := range emResp.Data.Klines {
		// date,open,close,high,low,volume,amount
		parts := strings.Split(line, ",")
		if len(parts) < 7 {
			continue
		}

		open, _ := strconv.ParseFloat(parts[1], 64)
		closePrice, _ := strconv.ParseFloat(parts[2], 64)
		high, _ := strconv.ParseFloat(parts[3], 64)
		low, _ := strconv.ParseFloat(parts[4], 64)
		volume, _ := strconv.ParseFloat(parts[5], 64)
		amount, _ := strconv.ParseFloat(parts[6], 64)

		result = append(result, KlineData{
			Date:   dateOnly(parts[0]),
			Open:   open,
			Close:  closePrice,
			High:   high,
			Low:    low,
			Volume: volume,
			Amount: amount,
		})
	}
	return result, nil
}

func dateOnly(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
