// internal/data/maxmind_db_process.go
package data

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/oschwald/maxminddb-golang/v2"
)

// OpenMaxMindDB 打开 MaxMind 数据库，.zst 结尾的文件先在内存中解压
func OpenMaxMindDB(path string) (*maxminddb.Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("mmdb path is empty")
	}
	if !strings.HasSuffix(path, ".zst") {
		db, err := maxminddb.Open(path)
		if err != nil {
			return nil, fmt.Errorf("maxmind数据库打开失败: %w", err)
		}
		return db, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("maxmind数据库文件打开失败: %w", err)
	}
	defer f.Close()

	raw, err := DecompressZstd(f)
	if err != nil {
		return nil, fmt.Errorf("maxmind数据库文件解压失败: %w", err)
	}

	db, err := maxminddb.FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("maxmind数据库打开失败: %w", err)
	}
	return db, nil
}

// DecompressZstd 解压 zstd 数据流
func DecompressZstd(r io.Reader) ([]byte, error) {
	zstdDecoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd解码器创建失败: %w", err)
	}
	defer zstdDecoder.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zstdDecoder); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
