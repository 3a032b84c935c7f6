// ipquery.go
package ipquery

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sinspired/ipquery/api"
	"github.com/sinspired/ipquery/internal/command"
	"github.com/sinspired/ipquery/internal/config"
	"github.com/sinspired/ipquery/internal/metrics"
	"github.com/sinspired/ipquery/internal/resolver"
	"github.com/sinspired/ipquery/pkg/ipinfo"
)

// Status 插件状态
type Status = resolver.Status

// Service 组合查询客户端、指令处理与 HTTP 接口，Close 时释放连接池
type Service struct {
	resolver  *resolver.Resolver
	processor *command.Processor
	registry  *prometheus.Registry
}

// NewService 使用已创建的客户端，Service 接管其生命周期
func NewService(cli *ipinfo.Client, logger *slog.Logger) *Service {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager("ipquery", "plugin", reg)

	r := resolver.NewResolver(cli, m, logger)
	return &Service{
		resolver:  r,
		processor: command.NewProcessor(r, m),
		registry:  reg,
	}
}

// NewServiceFromConfig 读取配置文件（可为空）与环境变量后创建 Service
func NewServiceFromConfig(configPath string, logger *slog.Logger) (*Service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cli, err := resolver.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewService(cli, logger), nil
}

// Lookup 查询指定 IP
func (s *Service) Lookup(ctx context.Context, ip string) (ipinfo.LookupResult, error) {
	return s.resolver.Resolve(ctx, ip)
}

// HandleMessage 处理一条聊天消息，返回依次发送的回复
func (s *Service) HandleMessage(ctx context.Context, text string) []string {
	return s.processor.Process(ctx, text)
}

// Status 当前状态
func (s *Service) Status() Status {
	return s.resolver.Status()
}

// Handler HTTP 接口
func (s *Service) Handler() http.Handler {
	return &api.Handler{
		Resolver:  s.resolver,
		Processor: s.processor,
		Gatherer:  s.registry,
	}
}

// Close 关闭会话
func (s *Service) Close() error {
	return s.resolver.Close()
}

// ValidateIP 校验 IP 地址格式（IPv4 / IPv6）
func ValidateIP(candidate string) bool {
	return ipinfo.ValidateIP(candidate)
}
