// Package mmdbtest 生成测试用的最小 MaxMind 数据库。
//
// 数据库为 IPv4、record_size 24、只有一个节点，所有地址都指向同一条 City 记录。
package mmdbtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
)

// City 写入数据库的城市记录
type City struct {
	CountryISO   string
	CountryNames map[string]string
	RegionNames  map[string]string
	CityNames    map[string]string
	Latitude     float64
	Longitude    float64
	TimeZone     string
}

// metadataMarker 元数据起始标记
var metadataMarker = []byte("\xab\xcd\xefMaxMind.com")

const (
	nodeCount  = 1
	recordSize = 24
)

// BuildCityDB 返回 .mmdb 文件内容
func BuildCityDB(c City) []byte {
	var buf bytes.Buffer

	// 搜索树: 左右记录都指向数据区偏移 0
	record := uint32(nodeCount + 16)
	for range 2 {
		buf.Write([]byte{byte(record >> 16), byte(record >> 8), byte(record)})
	}
	// 数据区分隔
	buf.Write(make([]byte, 16))

	country := map[string]any{"names": stringMap(c.CountryNames)}
	if c.CountryISO != "" {
		country["iso_code"] = c.CountryISO
	}
	data := map[string]any{
		"country": country,
		"location": map[string]any{
			"latitude":  c.Latitude,
			"longitude": c.Longitude,
			"time_zone": c.TimeZone,
		},
	}
	if len(c.RegionNames) > 0 {
		data["subdivisions"] = []any{map[string]any{"names": stringMap(c.RegionNames)}}
	}
	if len(c.CityNames) > 0 {
		data["city"] = map[string]any{"names": stringMap(c.CityNames)}
	}
	encode(&buf, data)

	buf.Write(metadataMarker)
	encode(&buf, map[string]any{
		"binary_format_major_version": uint16(2),
		"binary_format_minor_version": uint16(0),
		"build_epoch":                 uint64(1700000000),
		"database_type":               "GeoLite2-City",
		"description":                 map[string]any{"en": "ipquery test database"},
		"ip_version":                  uint16(4),
		"languages":                   []any{"en", "zh-CN"},
		"node_count":                  uint32(nodeCount),
		"record_size":                 uint16(recordSize),
	})
	return buf.Bytes()
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// 数据区类型
const (
	typeString = 2
	typeDouble = 3
	typeUint16 = 5
	typeUint32 = 6
	typeMap    = 7
	typeUint64 = 9
	typeArray  = 11
)

// writeControl 写控制字节; 类型大于 7 时使用扩展类型字节
func writeControl(buf *bytes.Buffer, typ, size int) {
	if size >= 29 {
		panic("mmdbtest: value too large")
	}
	if typ <= 7 {
		buf.WriteByte(byte(typ<<5 | size))
		return
	}
	buf.WriteByte(byte(size))
	buf.WriteByte(byte(typ - 7))
}

func writeUint(buf *bytes.Buffer, typ int, v uint64, width int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	raw := b[8-width:]
	for len(raw) > 0 && raw[0] == 0 {
		raw = raw[1:]
	}
	writeControl(buf, typ, len(raw))
	buf.Write(raw)
}

func encode(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case string:
		writeControl(buf, typeString, len(val))
		buf.WriteString(val)
	case float64:
		writeControl(buf, typeDouble, 8)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(val))
		buf.Write(b[:])
	case uint16:
		writeUint(buf, typeUint16, uint64(val), 2)
	case uint32:
		writeUint(buf, typeUint32, uint64(val), 4)
	case uint64:
		writeUint(buf, typeUint64, val, 8)
	case []any:
		writeControl(buf, typeArray, len(val))
		for _, item := range val {
			encode(buf, item)
		}
	case map[string]any:
		writeControl(buf, typeMap, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encode(buf, k)
			encode(buf, val[k])
		}
	default:
		panic("mmdbtest: unsupported type")
	}
}
