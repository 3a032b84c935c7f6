package ipinfo

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// Client IP 归属地查询客户端。
// 连接池在 New 时创建，Close 时释放，不存在包级全局会话。
type Client struct {
	httpClient *http.Client // 指定 http 客户端
	ownHTTP    bool         // 连接池由客户端创建

	providers []Provider // 按优先级排列的数据源

	connectTimeout  time.Duration
	totalTimeout    time.Duration // 单个数据源请求的总超时
	maxConns        int
	maxConnsPerHost int
	dnsCacheTTL     time.Duration

	userAgent       string
	randomUserAgent bool

	logger *slog.Logger
	closed atomic.Bool
}

// 客户端设置
type Option func(*Client) error

// 指定 http 客户端，默认为客户端私有的连接池
func WithHttpClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client is nil")
		}
		c.httpClient = hc
		c.ownHTTP = false
		return nil
	}
}

// 指定数据源及其优先级，默认为 DefaultProviders
func WithProviders(providers ...Provider) Option {
	return func(c *Client) error {
		for i, p := range providers {
			if p == nil {
				return fmt.Errorf("provider %d is nil", i)
			}
		}
		c.providers = slices.Clone(providers)
		return nil
	}
}

// 指定连接超时与单次请求总超时，默认 5s / 10s
func WithTimeouts(connect, total time.Duration) Option {
	return func(c *Client) error {
		if connect <= 0 || total <= 0 {
			return fmt.Errorf("timeouts must be positive: connect=%s total=%s", connect, total)
		}
		c.connectTimeout = connect
		c.totalTimeout = total
		return nil
	}
}

// 指定连接池上限，默认总数 10、单主机 5
func WithPoolLimits(maxConns, maxConnsPerHost int) Option {
	return func(c *Client) error {
		if maxConns <= 0 || maxConnsPerHost <= 0 {
			return fmt.Errorf("pool limits must be positive: total=%d per_host=%d", maxConns, maxConnsPerHost)
		}
		c.maxConns = maxConns
		c.maxConnsPerHost = maxConnsPerHost
		return nil
	}
}

// 指定 DNS 缓存有效期，默认 300s，0 表示不缓存
func WithDNSCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		if ttl < 0 {
			return fmt.Errorf("dns cache ttl is negative: %s", ttl)
		}
		c.dnsCacheTTL = ttl
		return nil
	}
}

// 指定固定 UA
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if ua == "" {
			return fmt.Errorf("user agent is empty")
		}
		c.userAgent = ua
		return nil
	}
}

// 每个请求使用随机浏览器 UA
func WithRandomUserAgent(enabled bool) Option {
	return func(c *Client) error {
		c.randomUserAgent = enabled
		return nil
	}
}

// 指定日志
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error {
		if l == nil {
			return fmt.Errorf("logger is nil")
		}
		c.logger = l
		return nil
	}
}

// 创建新的 ipinfo 客户端
func New(opts ...Option) (*Client, error) {
	c := &Client{
		connectTimeout:  defaultConnectTimeout,
		totalTimeout:    defaultHTTPTimeout,
		maxConns:        defaultMaxConns,
		maxConnsPerHost: defaultMaxConnsPerHost,
		dnsCacheTTL:     defaultDNSCacheTTL,
		userAgent:       defaultUserAgent,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	// httpClient 默认
	if c.httpClient == nil {
		c.httpClient = newPooledHTTPClient(poolConfig{
			connectTimeout:  c.connectTimeout,
			maxConns:        c.maxConns,
			maxConnsPerHost: c.maxConnsPerHost,
			dnsCacheTTL:     c.dnsCacheTTL,
		})
		c.ownHTTP = true
	}

	// 数据源兜底
	if len(c.providers) == 0 {
		c.providers = DefaultProviders()
	}
	for _, p := range c.providers {
		if b, ok := p.(interface {
			bind(*http.Client, func() string)
		}); ok {
			b.bind(c.httpClient, c.currentUserAgent)
		}
	}

	c.logger.Info("🌐 IP查询客户端已初始化", "providers", c.ProviderNames())
	return c, nil
}

func (c *Client) currentUserAgent() string {
	if c.randomUserAgent {
		return randUserAgent()
	}
	return c.userAgent
}

// ProviderCount 数据源数量
func (c *Client) ProviderCount() int { return len(c.providers) }

// ProviderNames 按优先级排列的数据源名称
func (c *Client) ProviderNames() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Timeouts 连接超时与单次请求总超时
func (c *Client) Timeouts() (connect, total time.Duration) {
	return c.connectTimeout, c.totalTimeout
}

// Closed 客户端是否已关闭
func (c *Client) Closed() bool { return c.closed.Load() }

// Close 释放连接池与数据源持有的资源，可重复调用
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	for _, p := range c.providers {
		if closer, ok := p.(interface{ Close() error }); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	if c.ownHTTP {
		c.httpClient.CloseIdleConnections()
	}
	c.logger.Info("IP查询会话已关闭")
	return err
}
