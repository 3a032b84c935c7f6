package ipinfo

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Lookup 按优先级依次查询数据源，返回第一个满足成功条件的结果。
//
// 失败时返回 *LookupError:
//   - 输入非法: KindInvalidInput，不发起任何请求
//   - 最后一次网络层失败为超时: KindNetworkTimeout
//   - 最后一次网络层失败为连接错误: KindNetworkError
//   - 全部数据源均有响应但都不满足条件: KindAllProvidersExhausted
//   - 其它: KindUnexpected
func (c *Client) Lookup(ctx context.Context, ip string) (LookupResult, error) {
	if !ValidateIP(ip) {
		return LookupResult{}, &LookupError{Kind: KindInvalidInput, IP: ip, Err: ErrInvalidInput}
	}
	if c.Closed() {
		return LookupResult{}, &LookupError{Kind: KindUnexpected, IP: ip, Err: ErrClientClosed}
	}

	var (
		errs        error
		netKind     Kind
		sawNetError bool
		sawOther    bool
	)
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			return LookupResult{}, c.fail(ip, c.parentKind(err), errs)
		}

		res, err := c.lookupOne(ctx, p, ip)
		if err == nil {
			c.logger.Debug(fmt.Sprintf("%s 查询成功: %s", p.Name(), ip))
			return res, nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		switch k := classify(err); k {
		case KindNetworkTimeout, KindNetworkError:
			// 父 context 本身已结束时不再继续
			if ctx.Err() != nil {
				return LookupResult{}, c.fail(ip, c.parentKind(ctx.Err()), errs)
			}
			netKind, sawNetError = k, true
		case KindAllProvidersExhausted:
		default:
			sawOther = true
		}
	}

	switch {
	case sawNetError:
		return LookupResult{}, c.fail(ip, netKind, errs)
	case sawOther:
		return LookupResult{}, c.fail(ip, KindUnexpected, errs)
	default:
		return LookupResult{}, c.fail(ip, KindAllProvidersExhausted, errs)
	}
}

// lookupOne 为单个数据源设置请求总超时
func (c *Client) lookupOne(ctx context.Context, p Provider, ip string) (LookupResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.totalTimeout)
	defer cancel()
	return p.Lookup(ctx, ip)
}

// parentKind 调用方 context 结束时的失败类别
func (c *Client) parentKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetworkTimeout
	}
	return KindUnexpected
}

func (c *Client) fail(ip string, kind Kind, errs error) error {
	switch kind {
	case KindNetworkTimeout:
		c.logger.Error(fmt.Sprintf("查询IP %s 超时", ip), "ip", ip, "err", errs)
	case KindNetworkError:
		c.logger.Error(fmt.Sprintf("网络错误查询IP %s", ip), "ip", ip, "err", errs)
	default:
		c.logger.Error(fmt.Sprintf("查询IP信息失败 %s", ip), "ip", ip, "kind", kind.String(), "err", errs)
	}
	return &LookupError{Kind: kind, IP: ip, Err: errs}
}
