package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// フロントがゲートウェイへフォームPOSTするための情報。
// URLとフィールドを返すだけで、サーバーはリダイレクトしない。
type RedirectDescriptor struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// eSewaクライアント。設定は生成時に固定して以後変更しない。
type EsewaClient struct {
	httpClient *http.Client

	merchantCode string
	payURL       string
	verifyURL    string

	//コールバックの着地先（このAPI自身）
	successURL string
	failureURL string
}

type EsewaConfig struct {
	MerchantCode string
	PayURL       string
	VerifyURL    string
	SuccessURL   string
	FailureURL   string
	Timeout      time.Duration
}

func NewEsewaClient(cfg EsewaConfig) *EsewaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EsewaClient{
		httpClient:   &http.Client{Timeout: timeout},
		merchantCode: cfg.MerchantCode,
		payURL:       cfg.PayURL,
		verifyURL:    cfg.VerifyURL,
		successURL:   cfg.SuccessURL,
		failureURL:   cfg.FailureURL,
	}
}

// BuildRedirect は注文IDと金額からフォームPOSTの中身を組み立てる。
// 注文IDがそのまま支払い識別子（pid）になる。
func (c *EsewaClient) BuildRedirect(orderID int64, amount int64) RedirectDescriptor {
	amt := strconv.FormatInt(amount, 10)
	return RedirectDescriptor{
		URL: c.payURL,
		Fields: map[string]string{
			"amt":   amt,
			"psc":   "0",
			"pdc":   "0",
			"txAmt": "0",
			"tAmt":  amt,
			"pid":   strconv.FormatInt(orderID, 10),
			"scd":   c.merchantCode,
			"su":    c.successURL,
			"fu":    c.failureURL,
		},
	}
}

// VerifyPayment は取引照会エンドポイントに問い合わせて、
// コールバックのrefIdが本物かを確認する。
// レスポンスはXMLで response_code に Success が入る。
func (c *EsewaClient) VerifyPayment(ctx context.Context, orderID int64, amount int64, refID string) (bool, error) {
	form := url.Values{}
	form.Set("amt", strconv.FormatInt(amount, 10))
	form.Set("scd", c.merchantCode)
	form.Set("rid", refID)
	form.Set("pid", strconv.FormatInt(orderID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("esewa verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("esewa verify: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return false, fmt.Errorf("esewa verify: %w", err)
	}

	return strings.Contains(strings.ToLower(string(body)), "success"), nil
}
