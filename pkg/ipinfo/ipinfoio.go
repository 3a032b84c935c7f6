package ipinfo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ipinfoio "github.com/ipinfo/go/v2/ipinfo"
)

const IPInfoName = "ipinfo.io"

// ipinfoProvider ipinfo.io 官方 SDK 数据源，需要 token
type ipinfoProvider struct {
	token   string
	timeout time.Duration
	baseURL *url.URL // 为空时使用 SDK 默认地址

	transport http.RoundTripper
	userAgent func() string
}

// NewIPInfoProvider ipinfo.io 数据源; timeout 作用于 SDK 内部的 http 客户端
func NewIPInfoProvider(token string, timeout time.Duration) Provider {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &ipinfoProvider{token: token, timeout: timeout}
}

func (p *ipinfoProvider) Name() string { return IPInfoName }

// bind 复用客户端连接池与 UA
func (p *ipinfoProvider) bind(hc *http.Client, userAgent func() string) {
	p.transport = hc.Transport
	p.userAgent = userAgent
}

// requestTransport SDK 不接收 context，在 RoundTrip 时补上调用方的 context 与 UA
type requestTransport struct {
	ctx       context.Context
	base      http.RoundTripper
	userAgent string
}

func (t *requestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// newClient 每次查询创建 SDK 客户端，请求随 ctx 取消或超时
func (p *ipinfoProvider) newClient(ctx context.Context) *ipinfoio.Client {
	base := p.transport
	if base == nil {
		base = http.DefaultTransport
	}
	ua := defaultUserAgent
	if p.userAgent != nil {
		ua = p.userAgent()
	}
	hc := &http.Client{
		Transport: &requestTransport{ctx: ctx, base: base, userAgent: ua},
		Timeout:   p.timeout,
	}
	client := ipinfoio.NewClient(hc, nil, p.token)
	if p.baseURL != nil {
		client.BaseURL = p.baseURL
	}
	return client
}

func (p *ipinfoProvider) Lookup(ctx context.Context, ip string) (LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return LookupResult{}, err
	}
	core, err := p.newClient(ctx).GetIPInfo(net.ParseIP(ip))
	if err != nil {
		// SDK 可能不保留错误链，context 结束时以 ctx.Err() 为准
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LookupResult{}, fmt.Errorf("ipinfo.io lookup: %w", ctxErr)
		}
		return LookupResult{}, fmt.Errorf("ipinfo.io lookup: %w", err)
	}
	res, ok := coreToResult(core, ip)
	if !ok {
		return LookupResult{}, fmt.Errorf("%w: %s", ErrNotMatched, IPInfoName)
	}
	res.Provider = IPInfoName
	return res, nil
}

// coreToResult bogon 地址或空结果视为不满足条件
func coreToResult(core *ipinfoio.Core, ip string) (LookupResult, bool) {
	if core == nil || core.Bogon {
		return LookupResult{}, false
	}
	res := newResult(ip)
	if core.IP != nil {
		res.IP = core.IP.String()
	}
	if core.CountryName != "" {
		res.Country = core.CountryName
	} else if core.Country != "" {
		res.Country = core.Country
	}
	if core.Region != "" {
		res.Region = core.Region
	}
	if core.City != "" {
		res.City = core.City
	}
	if core.Org != "" {
		res.ISP = core.Org
	}
	if core.Timezone != "" {
		res.TimeZone = core.Timezone
	}
	res.Latitude, res.Longitude = parseLoc(core.Location)
	return res, true
}

// parseLoc 解析 "lat,lon"
func parseLoc(loc string) (lat, lon float64) {
	parts := strings.SplitN(loc, ",", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || !finite(lat) || !finite(lon) {
		return 0, 0
	}
	return lat, lon
}
