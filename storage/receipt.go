// Package storage 保存交易票据（小票照片或 PDF）
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"budget/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrTooLarge 文件超过大小限制
	ErrTooLarge = errors.New("receipt file too large")
	// ErrUnsupportedType 不支持的文件类型
	ErrUnsupportedType = errors.New("unsupported receipt type")
)

const defaultMaxBytes = 5 << 20

// allowedTypes 允许的 MIME 类型及保存时使用的扩展名
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ReceiptStore 本地磁盘票据存储，按 年/月 分目录
type ReceiptStore struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	now       func() time.Time
}

// NewReceiptStore 创建票据存储
func NewReceiptStore(cfg config.UploadConfig) *ReceiptStore {
	maxBytes := cfg.MaxUploadBytes()
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &ReceiptStore{
		dir:       cfg.Dir,
		urlPrefix: strings.TrimSuffix(cfg.URLPrefix, "/"),
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// Dir 存储根目录
func (s *ReceiptStore) Dir() string {
	return s.dir
}

// MaxBytes 单个票据的最大字节数
func (s *ReceiptStore) MaxBytes() int64 {
	return s.maxBytes
}

// URLPrefix 对外访问前缀
func (s *ReceiptStore) URLPrefix() string {
	return s.urlPrefix
}

// Save 校验内容类型与大小后写入磁盘，返回对外访问路径
func (s *ReceiptStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("读取票据失败: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: 最大 %d 字节", ErrTooLarge, s.maxBytes)
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[baseMIME(mtype.String())]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	sub := s.now().Format("2006/01")
	name := uuid.NewString() + ext
	dir := filepath.Join(s.dir, filepath.FromSlash(sub))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}
	if err := writeFile(filepath.Join(dir, name), data); err != nil {
		return "", err
	}
	return path.Join(s.urlPrefix, sub, name), nil
}

// Remove 删除 Save 返回的文件，文件不存在时不报错
func (s *ReceiptStore) Remove(url string) error {
	rel := strings.TrimPrefix(url, s.urlPrefix+"/")
	if rel == url || rel == "" || strings.Contains(rel, "..") {
		return fmt.Errorf("非法的票据路径: %q", url)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除票据失败: %w", err)
	}
	return nil
}

func writeFile(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("保存票据失败: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(name)
		return fmt.Errorf("保存票据失败: %w", err)
	}
	return f.Close()
}

// baseMIME 去掉参数部分，如 "text/plain; charset=utf-8" -> "text/plain"
func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}
