package resolver

import (
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/sinspired/ipquery/internal/metrics"
	"github.com/sinspired/ipquery/pkg/ipinfo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Resolver 在查询客户端之上记录日志与指标
type Resolver struct {
	cli     *ipinfo.Client
	metrics *metrics.Manager
	logger  *slog.Logger
}

// Status 插件状态
type Status struct {
	ProviderCount  int
	ProviderNames  []string
	SessionOpen    bool
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
}

// statusJSON Status 的输出格式，超时以秒表示
type statusJSON struct {
	ProviderCount         int      `json:"provider_count"`
	ProviderNames         []string `json:"providers"`
	SessionOpen           bool     `json:"session_open"`
	ConnectTimeoutSeconds float64  `json:"connect_timeout_seconds"`
	TotalTimeoutSeconds   float64  `json:"total_timeout_seconds"`
}

// MarshalJSON 超时以秒输出，与状态回复一致
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{
		ProviderCount:         s.ProviderCount,
		ProviderNames:         s.ProviderNames,
		SessionOpen:           s.SessionOpen,
		ConnectTimeoutSeconds: s.ConnectTimeout.Seconds(),
		TotalTimeoutSeconds:   s.TotalTimeout.Seconds(),
	})
}
