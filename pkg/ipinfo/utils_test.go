package ipinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIP(t *testing.T) {
	valid := []string{
		"8.8.8.8",
		"0.0.0.0",
		"255.255.255.255",
		"192.168.1.1",
		"::1",
		"2001:db8::1",
		"fe80::1ff:fe23:4567:890a",
		"::ffff:1.2.3.4",
	}
	for _, ip := range valid {
		assert.True(t, ValidateIP(ip), ip)
	}

	invalid := []string{
		"",
		"not-an-ip",
		"999.1.1.1",
		"256.0.0.1",
		"1.2.3",
		"1.2.3.4.5",
		"a.b.c.d",
		"1.2.3.x",
		"01.2.3.4",
		" 8.8.8.8",
		"8.8.8.8\n",
		"fe80::1%eth0",
		"2001:db8::g",
	}
	for _, ip := range invalid {
		assert.False(t, ValidateIP(ip), ip)
	}
}

// 带前导零的 IPv4 可能被按八进制解读，统一拒绝
func TestValidateIP_LeadingZeros(t *testing.T) {
	for _, ip := range []string{"010.1.1.1", "1.02.3.4", "192.168.001.1", "00.0.0.0"} {
		assert.False(t, ValidateIP(ip), ip)
	}
	assert.True(t, ValidateIP("10.1.1.1"))
	assert.True(t, ValidateIP("0.0.0.0"))

	// 仍能被识别为 "ip <地址>" 形式，由校验决定回复
	token, ok := ExtractLeadingIP("ip 010.1.1.1")
	assert.True(t, ok)
	assert.False(t, ValidateIP(token))
}

func TestExtractLeadingIP(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"ip 8.8.8.8", "8.8.8.8", true},
		{"IP   2001:db8::1  ", "2001:db8::1", true},
		{"ip 999.1.1.1", "999.1.1.1", true},
		{"ip 查询 8.8.8.8", "", false},
		{"ip 8.8.8.8 extra", "", false},
		{"ipx 8.8.8.8", "", false},
		{"hello ip 8.8.8.8", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractLeadingIP(c.text)
		assert.Equal(t, c.ok, ok, c.text)
		assert.Equal(t, c.want, got, c.text)
	}
}

func TestParseVmy(t *testing.T) {
	// 坐标为数字、缺少 isp
	res, ok := parseVmy(map[string]any{
		"code": float64(200),
		"data": map[string]any{
			"country":   "中国",
			"province":  "广东",
			"city":      "深圳",
			"latitude":  22.5,
			"longitude": "bad",
		},
	}, "1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, "1.1.1.1", res.IP)
	assert.Equal(t, "中国", res.Country)
	assert.Equal(t, "广东", res.Region)
	assert.Equal(t, "深圳", res.City)
	assert.Equal(t, Unknown, res.ISP)
	assert.Equal(t, 22.5, res.Latitude)
	assert.Zero(t, res.Longitude)
	assert.Equal(t, Unknown, res.TimeZone)

	// 缺少 data
	res, ok = parseVmy(map[string]any{"code": float64(200)}, "1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, Unknown, res.Country)

	_, ok = parseVmy(map[string]any{"code": float64(500)}, "1.1.1.1")
	assert.False(t, ok)
	_, ok = parseVmy(map[string]any{"code": "200"}, "1.1.1.1")
	assert.False(t, ok)
	_, ok = parseVmy(map[string]any{}, "1.1.1.1")
	assert.False(t, ok)
}

func TestParseVmy_NonFiniteCoordinates(t *testing.T) {
	for _, pair := range [][2]any{
		{"NaN", "Inf"},
		{"-Inf", "infinity"},
		{"nan", "+Inf"},
	} {
		res, ok := parseVmy(map[string]any{
			"code": float64(200),
			"data": map[string]any{"latitude": pair[0], "longitude": pair[1]},
		}, "1.1.1.1")
		assert.True(t, ok)
		assert.Zero(t, res.Latitude, pair[0])
		assert.Zero(t, res.Longitude, pair[1])
		assert.Equal(t, "0", FormatCoord(res.Latitude))
	}
}

func TestParseVvhan(t *testing.T) {
	res, ok := parseVvhan(map[string]any{
		"success": true,
		"ip":      "",
		"info":    map[string]any{"country": "中国", "prov": "北京", "city": "", "isp": "电信"},
	}, "1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, "1.1.1.1", res.IP)
	assert.Equal(t, "北京", res.Region)
	assert.Equal(t, Unknown, res.City)
	assert.Equal(t, "电信", res.ISP)
	assert.Zero(t, res.Latitude)

	_, ok = parseVvhan(map[string]any{"success": false}, "1.1.1.1")
	assert.False(t, ok)
	_, ok = parseVvhan(map[string]any{"success": "true"}, "1.1.1.1")
	assert.False(t, ok)
}

func TestFormatCoord(t *testing.T) {
	assert.Equal(t, "37.4", FormatCoord(37.4))
	assert.Equal(t, "-122.1", FormatCoord(-122.1))
	assert.Equal(t, "0", FormatCoord(0))
}
