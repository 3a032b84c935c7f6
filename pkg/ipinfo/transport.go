package ipinfo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"golang.org/x/sync/semaphore"
)

const (
	defaultConnectTimeout  = 5 * time.Second
	defaultHTTPTimeout     = 10 * time.Second
	defaultMaxConns        = 10
	defaultMaxConnsPerHost = 5
	defaultDNSCacheTTL     = 300 * time.Second

	// DNS 缓存容量，freecache 最小 512KB
	dnsCacheSize = 512 * 1024
)

// hostResolver 解析主机名，便于测试替换
type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// dnsCache 带 TTL 的 DNS 缓存
type dnsCache struct {
	cache    *freecache.Cache
	ttl      time.Duration
	resolver hostResolver
}

func newDNSCache(ttl time.Duration, r hostResolver) *dnsCache {
	if r == nil {
		r = net.DefaultResolver
	}
	return &dnsCache{
		cache:    freecache.NewCache(dnsCacheSize),
		ttl:      ttl,
		resolver: r,
	}
}

// lookup 先查缓存，未命中再解析并写入
func (d *dnsCache) lookup(ctx context.Context, host string) ([]string, error) {
	if v, err := d.cache.Get([]byte(host)); err == nil {
		return strings.Split(string(v), ","), nil
	}
	addrs, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	if ttl := int(d.ttl / time.Second); ttl > 0 {
		if err := d.cache.Set([]byte(host), []byte(strings.Join(addrs, ",")), ttl); err != nil {
			slog.Debug(fmt.Sprintf("DNS 缓存写入失败: %s, err: %v", host, err))
		}
	}
	return addrs, nil
}

// dialContext 使用缓存的解析结果依次尝试连接
func (d *dnsCache) dialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if net.ParseIP(host) != nil {
			return dialer.DialContext(ctx, network, addr)
		}
		ips, err := d.lookup(ctx, host)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}

// limitedTransport 限制同时进行的请求总数，响应体关闭时释放名额
type limitedTransport struct {
	base http.RoundTripper
	sem  *semaphore.Weighted
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}
	resp.Body = &releaseOnClose{ReadCloser: resp.Body, release: func() { t.sem.Release(1) }}
	return resp, nil
}

func (t *limitedTransport) CloseIdleConnections() {
	if ci, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

type releaseOnClose struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (r *releaseOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.release)
	return err
}

// poolConfig 连接池参数
type poolConfig struct {
	connectTimeout  time.Duration
	maxConns        int
	maxConnsPerHost int
	dnsCacheTTL     time.Duration
	resolver        hostResolver
}

// newPooledHTTPClient 创建客户端私有的连接池
func newPooledHTTPClient(pc poolConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   pc.connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	dns := newDNSCache(pc.dnsCacheTTL, pc.resolver)

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dns.dialContext(dialer),
		MaxIdleConns:          pc.maxConns,
		MaxIdleConnsPerHost:   pc.maxConnsPerHost,
		MaxConnsPerHost:       pc.maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   pc.connectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: &limitedTransport{
			base: tr,
			sem:  semaphore.NewWeighted(int64(pc.maxConns)),
		},
	}
}
