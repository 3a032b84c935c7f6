package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sinspired/ipquery/internal/resolver"
	"github.com/sinspired/ipquery/pkg/ipinfo"
)

const (
	ReplyMissingIP    = "❌ 请提供IP地址，格式：ip 查询 8.8.8.8"
	ReplyInvalidIP    = "❌ 请输入有效的IP地址"
	ReplyLookupFailed = "❌ 查询失败，请稍后重试"
)

// HelpText 指令帮助
func HelpText() string {
	return "🌐 IP查询插件命令:\n" +
		"  ip 查询 [IP地址] - 查询指定IP的归属地\n" +
		"  ip [IP地址] - 同上，支持 IPv4 / IPv6\n" +
		"  ip 状态 - 查看插件状态"
}

// FormatResult 查询结果回复
func FormatResult(res ipinfo.LookupResult) string {
	return fmt.Sprintf(
		"📍 IP地址：%s\n"+
			"🏳️ 国家：%s\n"+
			"🗺️ 地区：%s\n"+
			"🏙️ 城市：%s\n"+
			"🏢 ISP：%s\n"+
			"📍 坐标：%s, %s\n"+
			"🕐 时区：%s",
		res.IP, res.Country, res.Region, res.City, res.ISP,
		ipinfo.FormatCoord(res.Latitude), ipinfo.FormatCoord(res.Longitude),
		res.TimeZone,
	)
}

// FormatStatus 插件状态回复
func FormatStatus(st resolver.Status) string {
	session := "已关闭"
	if st.SessionOpen {
		session = "活跃"
	}
	var b strings.Builder
	b.WriteString("📊 IP查询插件状态:\n")
	fmt.Fprintf(&b, "API数量: %d\n", st.ProviderCount)
	if len(st.ProviderNames) > 0 {
		fmt.Fprintf(&b, "数据源: %s\n", strings.Join(st.ProviderNames, " → "))
	}
	fmt.Fprintf(&b, "会话状态: %s\n", session)
	fmt.Fprintf(&b, "超时设置: %s秒 (连接 %s秒)\n",
		seconds(st.TotalTimeout), seconds(st.ConnectTimeout))
	b.WriteString("支持命令: ip 查询, ip [IP地址], ip 状态")
	return b.String()
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
