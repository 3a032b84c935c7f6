// Package command 解析聊天消息中的 ip 指令并生成回复文本。
// 宿主只负责把原始消息交进来，再把返回的每一行回复依次发出去。
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sinspired/ipquery/internal/metrics"
	"github.com/sinspired/ipquery/internal/resolver"
	"github.com/sinspired/ipquery/pkg/ipinfo"
)

const (
	commandWord = "ip"
	subQuery    = "查询"
	subStatus   = "状态"
)

// lookupService Processor 依赖的查询能力
type lookupService interface {
	Resolve(ctx context.Context, ip string) (ipinfo.LookupResult, error)
	Status() resolver.Status
}

// Processor 处理 ip 指令
type Processor struct {
	svc     lookupService
	metrics *metrics.Manager
}

func NewProcessor(svc lookupService, m *metrics.Manager) *Processor {
	if m == nil {
		m = metrics.NewTestManager()
	}
	return &Processor{svc: svc, metrics: m}
}

// Handles 消息是否属于 ip 指令
func (p *Processor) Handles(text string) bool {
	parts := strings.Fields(text)
	return len(parts) > 0 && strings.EqualFold(parts[0], commandWord)
}

// Process 处理一条消息，按顺序返回要发送的回复; 非 ip 指令返回 nil
func (p *Processor) Process(ctx context.Context, text string) []string {
	if !p.Handles(text) {
		return nil
	}
	parts := strings.Fields(text)

	if len(parts) == 1 {
		p.count("help")
		return []string{HelpText()}
	}

	switch parts[1] {
	case subQuery:
		p.count("query")
		if len(parts) < 3 {
			return []string{ReplyMissingIP}
		}
		return p.query(ctx, parts[2])
	case subStatus:
		p.count("status")
		return []string{FormatStatus(p.svc.Status())}
	}

	if ip, ok := ipinfo.ExtractLeadingIP(text); ok {
		p.count("query")
		return p.query(ctx, ip)
	}

	p.count("help")
	return []string{HelpText()}
}

func (p *Processor) query(ctx context.Context, ip string) []string {
	if !ipinfo.ValidateIP(ip) {
		return []string{ReplyInvalidIP}
	}

	replies := []string{fmt.Sprintf("🔍 正在查询IP %s 的信息...", ip)}

	res, err := p.svc.Resolve(ctx, ip)
	if err != nil {
		if errors.Is(err, ipinfo.ErrInvalidInput) {
			return []string{ReplyInvalidIP}
		}
		slog.Debug(fmt.Sprintf("查询IP %s 失败: %v", ip, err))
		return append(replies, ReplyLookupFailed)
	}
	return append(replies, FormatResult(res))
}

func (p *Processor) count(cmd string) {
	p.metrics.CounterCommands.WithLabelValues(cmd).Inc()
}
