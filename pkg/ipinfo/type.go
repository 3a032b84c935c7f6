package ipinfo

import (
	"context"
	"strconv"
)

// Unknown 字段缺失时的占位值
const Unknown = "未知"

// LookupResult 归一化后的 IP 查询结果，与具体数据源无关
type LookupResult struct {
	IP        string  `json:"ip"`
	Country   string  `json:"country"`
	Region    string  `json:"region"` // 第一层行政区（省/州）
	City      string  `json:"city"`
	ISP       string  `json:"isp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeZone  string  `json:"timezone"`

	// 命中的数据源名称
	Provider string `json:"provider"`
}

// Provider 单个地理位置数据源
type Provider interface {
	Name() string
	// Lookup 查询 ip; 返回 ErrNotMatched 表示数据源已响应但结果不可用
	Lookup(ctx context.Context, ip string) (LookupResult, error)
}

// newResult 以 Unknown 填充所有字符串字段
func newResult(ip string) LookupResult {
	return LookupResult{
		IP:       ip,
		Country:  Unknown,
		Region:   Unknown,
		City:     Unknown,
		ISP:      Unknown,
		TimeZone: Unknown,
	}
}

// FormatCoord 以最短形式输出坐标，如 37.4、-122.1、0
func FormatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
