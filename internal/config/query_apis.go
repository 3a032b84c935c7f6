package config

import "github.com/sinspired/ipquery/pkg/ipinfo"

// 数据源地址，ip 以 query 参数 ?ip= 传入
const (
	// 返回 {code, data:{country, province, city, isp, latitude, longitude}}
	ProviderAEndpoint = ipinfo.VmyEndpoint

	// 返回 {success, ip, info:{country, prov, city, isp}}，不含坐标
	ProviderBEndpoint = ipinfo.VvhanEndpoint
)
