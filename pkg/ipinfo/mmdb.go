package ipinfo

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

const MaxMindName = "maxmind"

// cityRecord GeoLite2-City 中用到的字段
type cityRecord struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
		TimeZone  string  `maxminddb:"time_zone"`
	} `maxminddb:"location"`
}

// mmdbProvider 本地 MaxMind 数据库
type mmdbProvider struct {
	db  *maxminddb.Reader
	own bool
}

// NewMaxMindProvider 使用已打开的数据库; own=true 时 Close 会一并关闭数据库
func NewMaxMindProvider(db *maxminddb.Reader, own bool) (Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("mmdb reader is nil")
	}
	return &mmdbProvider{db: db, own: own}, nil
}

func (p *mmdbProvider) Name() string { return MaxMindName }

func (p *mmdbProvider) Lookup(ctx context.Context, ip string) (LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return LookupResult{}, err
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return LookupResult{}, fmt.Errorf("无效的 IP 地址: %s", ip)
	}

	result := p.db.Lookup(addr)
	if err := result.Err(); err != nil {
		return LookupResult{}, fmt.Errorf("mmdb lookup %s: %w", ip, err)
	}
	if !result.Found() {
		return LookupResult{}, fmt.Errorf("%w: %s has no record for %s", ErrNotMatched, MaxMindName, ip)
	}
	var rec cityRecord
	if err := result.Decode(&rec); err != nil {
		return LookupResult{}, fmt.Errorf("decode mmdb record: %w", err)
	}
	return recordToResult(rec, ip), nil
}

func recordToResult(rec cityRecord, ip string) LookupResult {
	res := newResult(ip)
	res.Provider = MaxMindName
	if name := localizedName(rec.Country.Names); name != "" {
		res.Country = name
	} else if rec.Country.ISOCode != "" {
		res.Country = rec.Country.ISOCode
	}
	if len(rec.Subdivisions) > 0 {
		if name := localizedName(rec.Subdivisions[0].Names); name != "" {
			res.Region = name
		}
	}
	if name := localizedName(rec.City.Names); name != "" {
		res.City = name
	}
	if rec.Location.TimeZone != "" {
		res.TimeZone = rec.Location.TimeZone
	}
	res.Latitude = rec.Location.Latitude
	res.Longitude = rec.Location.Longitude
	return res
}

// localizedName 优先中文名，其次英文名
func localizedName(names map[string]string) string {
	if n := names["zh-CN"]; n != "" {
		return n
	}
	return names["en"]
}

func (p *mmdbProvider) Close() error {
	if !p.own || p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
