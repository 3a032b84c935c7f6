package ipinfo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind 查询失败的类别
type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidInput
	KindNetworkTimeout
	KindNetworkError
	KindAllProvidersExhausted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNetworkTimeout:
		return "network_timeout"
	case KindNetworkError:
		return "network_error"
	case KindAllProvidersExhausted:
		return "all_providers_exhausted"
	default:
		return "unexpected"
	}
}

var (
	ErrInvalidInput          = errors.New("invalid ip address")
	ErrNetworkTimeout        = errors.New("network timeout")
	ErrNetworkError          = errors.New("network error")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	ErrUnexpected            = errors.New("unexpected lookup failure")

	// ErrNotMatched 数据源有响应，但不满足其成功条件
	ErrNotMatched = errors.New("provider response not matched")
	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("ipinfo client closed")
)

// LookupError 携带失败类别与 IP 的错误
type LookupError struct {
	Kind Kind
	IP   string
	Err  error
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("lookup %s: %s", e.IP, e.Kind)
	}
	return fmt.Sprintf("lookup %s: %s: %v", e.IP, e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrNetworkTimeout) 等按类别匹配
func (e *LookupError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrNetworkTimeout:
		return e.Kind == KindNetworkTimeout
	case ErrNetworkError:
		return e.Kind == KindNetworkError
	case ErrAllProvidersExhausted:
		return e.Kind == KindAllProvidersExhausted
	case ErrUnexpected:
		return e.Kind == KindUnexpected
	}
	return false
}

// KindOf 返回 err 的失败类别，非 LookupError 一律视为 KindUnexpected
func KindOf(err error) Kind {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnexpected
}

// classify 判断单个数据源错误属于超时、网络错误还是其它
func classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnexpected
	case errors.Is(err, ErrNotMatched):
		return KindAllProvidersExhausted
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindNetworkTimeout
	case errors.Is(err, context.Canceled):
		return KindUnexpected
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindNetworkTimeout
		}
		return KindNetworkError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetworkError
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindNetworkError
	}
	return KindUnexpected
}
