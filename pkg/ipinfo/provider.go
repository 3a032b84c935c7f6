package ipinfo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// 默认数据源
	VmyEndpoint   = "https://api.52vmy.cn/api/query/itad/pro"
	VvhanEndpoint = "https://api.vvhan.com/api/ipInfo"

	VmyName   = "52vmy"
	VvhanName = "vvhan"

	// 数据源响应体上限
	maxResponseBytes = 1 << 20
)

// parseFunc 解析数据源响应; ok=false 表示不满足成功条件
type parseFunc func(body map[string]any, ip string) (res LookupResult, ok bool)

// httpProvider 通过 HTTP GET 查询的数据源，ip 作为 query 参数
type httpProvider struct {
	name     string
	endpoint string
	parse    parseFunc

	client    *http.Client
	userAgent func() string
}

func (p *httpProvider) Name() string { return p.name }

// requestURL 拼接查询地址，ip 做 URL 编码
func (p *httpProvider) requestURL(ip string) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %s: %w", p.endpoint, err)
	}
	q := u.Query()
	q.Set("ip", ip)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *httpProvider) Lookup(ctx context.Context, ip string) (LookupResult, error) {
	reqURL, err := p.requestURL(ip)
	if err != nil {
		return LookupResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		slog.Debug(fmt.Sprintf("创建请求失败: %s, err: %v", reqURL, err))
		return LookupResult{}, err
	}
	ua := defaultUserAgent
	if p.userAgent != nil {
		ua = p.userAgent()
	}
	for key, value := range apiCommonHeaders(ua) {
		req.Header.Set(key, value)
	}

	hc := p.client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		slog.Debug(fmt.Sprintf("请求失败: %s, err: %v", reqURL, err))
		return LookupResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug(fmt.Sprintf("请求状态码错误: %s, status: %d", reqURL, resp.StatusCode))
		return LookupResult{}, fmt.Errorf("%w: status code: %d", ErrNotMatched, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err == nil && len(bodyBytes) > maxResponseBytes {
		err = fmt.Errorf("%s response exceeds %d bytes", p.name, maxResponseBytes)
	}
	if err != nil {
		slog.Debug(fmt.Sprintf("读取响应失败: %s, err: %v", reqURL, err))
		return LookupResult{}, err
	}

	var data map[string]any
	if err := json.Unmarshal(bodyBytes, &data); err != nil {
		slog.Debug(fmt.Sprintf("解析 JSON 失败: %s, err: %v, body: %s", reqURL, err, string(bodyBytes)))
		return LookupResult{}, fmt.Errorf("decode %s response: %w", p.name, err)
	}

	res, ok := p.parse(data, ip)
	if !ok {
		slog.Debug(fmt.Sprintf("%s 返回数据不满足成功条件: %s", p.name, string(bodyBytes)))
		return LookupResult{}, fmt.Errorf("%w: %s", ErrNotMatched, p.name)
	}
	res.Provider = p.name
	return res, nil
}

// parseVmy 52vmy: code==200, 数据位于 data
func parseVmy(body map[string]any, ip string) (LookupResult, bool) {
	if code, ok := body["code"].(float64); !ok || int(code) != http.StatusOK {
		return LookupResult{}, false
	}
	data := objectField(body, "data")

	res := newResult(ip)
	res.Country = stringField(data, "country")
	res.Region = stringField(data, "province")
	res.City = stringField(data, "city")
	res.ISP = stringField(data, "isp")
	res.Latitude = floatField(data, "latitude")
	res.Longitude = floatField(data, "longitude")
	return res, true
}

// parseVvhan vvhan: success==true, 数据位于 info，不提供坐标
func parseVvhan(body map[string]any, ip string) (LookupResult, bool) {
	if success, ok := body["success"].(bool); !ok || !success {
		return LookupResult{}, false
	}
	info := objectField(body, "info")

	echoed := ip
	if s, ok := body["ip"].(string); ok && s != "" {
		echoed = s
	}
	res := newResult(echoed)
	res.Country = stringField(info, "country")
	res.Region = stringField(info, "prov")
	res.City = stringField(info, "city")
	res.ISP = stringField(info, "isp")
	return res, true
}

// NewVmyProvider 52vmy 数据源，endpoint 为空时使用默认地址
func NewVmyProvider(endpoint string) Provider {
	if endpoint == "" {
		endpoint = VmyEndpoint
	}
	return &httpProvider{name: VmyName, endpoint: endpoint, parse: parseVmy}
}

// NewVvhanProvider vvhan 数据源，endpoint 为空时使用默认地址
func NewVvhanProvider(endpoint string) Provider {
	if endpoint == "" {
		endpoint = VvhanEndpoint
	}
	return &httpProvider{name: VvhanName, endpoint: endpoint, parse: parseVvhan}
}

// DefaultProviders 默认优先级：52vmy, vvhan
func DefaultProviders() []Provider {
	return []Provider{NewVmyProvider(""), NewVvhanProvider("")}
}

// bind 注入客户端的连接池与 UA
func (p *httpProvider) bind(hc *http.Client, userAgent func() string) {
	p.client = hc
	p.userAgent = userAgent
}
