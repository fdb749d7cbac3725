// Package webhook 把记录以 JSON POST 到外部地址, 只投递一次, 不重试
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	http *resty.Client
	url  string
}

func NewClient(url string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	return &Client{http: client, url: url}
}

// Enabled 未配置地址时不投递
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Post 返回响应状态码; 非 2xx 也视为错误
func (c *Client) Post(ctx context.Context, payload any) (int, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return 0, fmt.Errorf("webhook post: %w", err)
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return res.StatusCode(), fmt.Errorf("webhook responded %s", res.Status())
	}
	return res.StatusCode(), nil
}
