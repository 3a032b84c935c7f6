package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sinspired/ipquery/internal/config"
	"github.com/sinspired/ipquery/internal/data"
	"github.com/sinspired/ipquery/internal/metrics"
	"github.com/sinspired/ipquery/pkg/ipinfo"
)

// NewResolver 创建一个新的 Resolver 实例
func NewResolver(cli *ipinfo.Client, m *metrics.Manager, logger *slog.Logger) *Resolver {
	if m == nil {
		m = metrics.NewTestManager()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cli:     cli,
		metrics: m,
		logger:  logger,
	}
}

// NewClient 按配置创建查询客户端; 固定顺序 52vmy, vvhan, 可选 ipinfo.io, 可选本地 MaxMind
func NewClient(cfg *config.Config, logger *slog.Logger) (*ipinfo.Client, error) {
	providers := []ipinfo.Provider{
		ipinfo.NewVmyProvider(cfg.ProviderAURL),
		ipinfo.NewVvhanProvider(cfg.ProviderBURL),
	}
	if cfg.IPInfoToken != "" {
		providers = append(providers, ipinfo.NewIPInfoProvider(cfg.IPInfoToken, cfg.HTTPTimeout.Duration))
	}
	if cfg.MaxMindDBPath != "" {
		db, err := data.OpenMaxMindDB(cfg.MaxMindDBPath)
		if err != nil {
			return nil, fmt.Errorf("open maxmind db: %w", err)
		}
		p, err := ipinfo.NewMaxMindProvider(db, true)
		if err != nil {
			db.Close()
			return nil, err
		}
		providers = append(providers, p)
	}

	opts := []ipinfo.Option{
		ipinfo.WithProviders(providers...),
		ipinfo.WithTimeouts(cfg.ConnectTimeout.Duration, cfg.HTTPTimeout.Duration),
		ipinfo.WithPoolLimits(cfg.MaxConns, cfg.MaxConnsPerHost),
		ipinfo.WithDNSCacheTTL(cfg.DNSCacheTTL.Duration),
		ipinfo.WithRandomUserAgent(cfg.RandomUserAgent),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, ipinfo.WithUserAgent(cfg.UserAgent))
	}
	if logger != nil {
		opts = append(opts, ipinfo.WithLogger(logger))
	}

	cli, err := ipinfo.New(opts...)
	if err != nil {
		for _, p := range providers {
			if closer, ok := p.(interface{ Close() error }); ok {
				closer.Close()
			}
		}
		return nil, err
	}
	return cli, nil
}

// Resolve 查询指定的 IP 地址
func (r *Resolver) Resolve(ctx context.Context, ip string) (ipinfo.LookupResult, error) {
	if !ipinfo.ValidateIP(ip) {
		r.metrics.CounterLookups.WithLabelValues("none", ipinfo.KindInvalidInput.String()).Inc()
		r.logger.Warn("拒绝无效的IP地址", "ip", ip)
		return ipinfo.LookupResult{}, &ipinfo.LookupError{Kind: ipinfo.KindInvalidInput, IP: ip, Err: ipinfo.ErrInvalidInput}
	}

	r.metrics.GaugeInflightLookups.Inc()
	defer r.metrics.GaugeInflightLookups.Dec()
	start := time.Now()

	res, err := r.cli.Lookup(ctx, ip)
	r.metrics.HistLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.CounterLookups.WithLabelValues("none", ipinfo.KindOf(err).String()).Inc()
		return ipinfo.LookupResult{}, fmt.Errorf("resolve %s: %w", ip, err)
	}

	r.metrics.CounterLookups.WithLabelValues(res.Provider, "ok").Inc()
	r.logger.Info("IP查询成功", "ip", ip, "provider", res.Provider, "country", res.Country)
	return res, nil
}

// Status 当前数据源数量、会话状态与超时设置
func (r *Resolver) Status() Status {
	connect, total := r.cli.Timeouts()
	return Status{
		ProviderCount:  r.cli.ProviderCount(),
		ProviderNames:  r.cli.ProviderNames(),
		SessionOpen:    !r.cli.Closed(),
		ConnectTimeout: connect,
		TotalTimeout:   total,
	}
}

// Close 释放查询客户端
func (r *Resolver) Close() error {
	return r.cli.Close()
}
