package ipinfo

import (
	"math"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"github.com/metacubex/mihomo/common/convert"
)

// defaultUserAgent 默认请求 UA
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// 消息开头形如 "ip 1.2.3.4" 的候选 token，IPv4 或 IPv6 字符集
var reLeadingIP = regexp.MustCompile(`^(?i:ip)\s+([0-9A-Fa-f:.]+)\s*$`)

// ValidateIP 校验 IP 地址格式，使用标准库解析器，同时接受 IPv4 与 IPv6。
// 带 zone 的 IPv6、前导零的 IPv4、首尾空白均视为无效。
func ValidateIP(candidate string) bool {
	if candidate == "" || strings.TrimSpace(candidate) != candidate {
		return false
	}
	addr, err := netip.ParseAddr(candidate)
	if err != nil {
		return false
	}
	return addr.Zone() == ""
}

// ExtractLeadingIP 从 "ip <地址>" 形式的消息中取出地址 token，不做合法性校验
func ExtractLeadingIP(text string) (string, bool) {
	m := reLeadingIP.FindStringSubmatch(strings.TrimSpace(text))
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// apiCommonHeaders 返回通用的 API 请求头
func apiCommonHeaders(userAgent string) map[string]string {
	return map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		"User-Agent":      userAgent,
	}
}

// randUserAgent 随机浏览器 UA
func randUserAgent() string {
	return convert.RandUserAgent()
}

// stringField 读取字符串字段，缺失或空值返回 Unknown
func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return Unknown
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return Unknown
		}
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return Unknown
}

// floatField 读取数值字段，兼容数字与数字字符串; 缺失、无法解析或非有限值（NaN/Inf）返回 0
func floatField(obj map[string]any, key string) float64 {
	var f float64
	switch v := obj[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if !finite(f) {
		return 0
	}
	return f
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// objectField 读取嵌套对象，缺失返回空 map
func objectField(obj map[string]any, key string) map[string]any {
	if m, ok := obj[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
