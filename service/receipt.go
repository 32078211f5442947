package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFileMissing 数据库中有票据记录但磁盘文件不存在
var ErrFileMissing = errors.New("票据文件不存在")

// ReceiptStore 票据文件存储
// 统一管理票据二进制的落盘与读取路径，调用方不直接拼接文件系统路径
type ReceiptStore struct {
	baseDir string
}

// NewReceiptStore 创建票据存储，baseDir 为存储根目录（如 media/）
func NewReceiptStore(baseDir string) (*ReceiptStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "receipts"), 0755); err != nil {
		return nil, fmt.Errorf("创建票据存储目录失败: %w", err)
	}
	return &ReceiptStore{baseDir: baseDir}, nil
}

// Filename 生成票据存储文件名
// 组合 用户ID + 消费ID + 上传时间戳 + 原始文件名，跨用户/消费/时间不冲突
func (s *ReceiptStore) Filename(userID, expenseID uint, originalName string, now time.Time) string {
	return fmt.Sprintf("user%d_exp%d_%d_%s", userID, expenseID, now.Unix(), sanitizeName(originalName))
}

// Save 写入票据文件，返回数据库中保存的相对路径（receipts/<文件名>）
// 必须先写文件成功再记录数据库行，写入失败时不会产生指向空文件的记录
func (s *ReceiptStore) Save(userID, expenseID uint, originalName string, data []byte) (string, error) {
	filename := s.Filename(userID, expenseID, originalName, time.Now())
	relPath := filepath.ToSlash(filepath.Join("receipts", filename))

	absPath := filepath.Join(s.baseDir, "receipts", filename)
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return "", fmt.Errorf("写入票据文件失败: %w", err)
	}
	return relPath, nil
}

// Resolve 将数据库中的相对路径解析为磁盘绝对路径
// 路径必须落在存储目录内；文件不存在时返回 ErrFileMissing
func (s *ReceiptStore) Resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", ErrFileMissing
	}

	absPath := filepath.Join(s.baseDir, cleaned)
	if _, err := os.Stat(absPath); err != nil {
		return "", ErrFileMissing
	}
	return absPath, nil
}

// sanitizeName 清理原始文件名，去掉路径成分和空白
func sanitizeName(name string) string {
	name = filepath.Base(filepath.FromSlash(name))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "receipt"
	}
	return name
}
