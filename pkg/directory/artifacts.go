package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dewei/StockScreener/pkg/model"
)

const (
	DefaultStocksFile  = "all-us-stocks.json"
	DefaultSymbolsFile = "all-us-symbols.json"
)

// Artifacts 目录产物的文件位置
type Artifacts struct {
	Dir         string
	StocksFile  string
	SymbolsFile string
}

// StocksPath 完整记录文件路径
func (a Artifacts) StocksPath() string {
	name := a.StocksFile
	if name == "" {
		name = DefaultStocksFile
	}
	return filepath.Join(a.Dir, name)
}

// SymbolsPath 代码列表文件路径
func (a Artifacts) SymbolsPath() string {
	name := a.SymbolsFile
	if name == "" {
		name = DefaultSymbolsFile
	}
	return filepath.Join(a.Dir, name)
}

// Write 写入完整记录和代码列表两个文件
//
// 每个文件先写入临时文件再重命名，读取方不会看到写了一半的内容。
func (a Artifacts) Write(entries []model.DirectoryEntry) error {
	if a.Dir != "" {
		if err := os.MkdirAll(a.Dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", a.Dir, err)
		}
	}

	if err := writeJSON(a.StocksPath(), entries); err != nil {
		return err
	}

	symbols := make([]string, len(entries))
	for i, e := range entries {
		symbols[i] = e.Symbol
	}
	return writeJSON(a.SymbolsPath(), symbols)
}

// Load 读取完整记录；文件缺失时退回代码列表文件
//
// 数组元素既可以是对象，也可以是单纯的代码字符串，读取时统一为 DirectoryEntry。
func (a Artifacts) Load() ([]model.DirectoryEntry, error) {
	entries, err := loadEntries(a.StocksPath())
	if err == nil {
		return entries, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return loadEntries(a.SymbolsPath())
}

// loadEntries 读取 JSON 数组并规范化元素
func loadEntries(path string) ([]model.DirectoryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}

	entries := make([]model.DirectoryEntry, 0, len(raw))
	for _, item := range raw {
		entry, ok := decodeEntry(item)
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// decodeEntry 将字符串或对象元素转换为 DirectoryEntry
func decodeEntry(item json.RawMessage) (model.DirectoryEntry, bool) {
	var symbol string
	if err := json.Unmarshal(item, &symbol); err == nil {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			return model.DirectoryEntry{}, false
		}
		return model.DirectoryEntry{Symbol: symbol, Name: symbol}, true
	}

	var entry model.DirectoryEntry
	if err := json.Unmarshal(item, &entry); err != nil {
		return model.DirectoryEntry{}, false
	}
	entry.Symbol = strings.TrimSpace(entry.Symbol)
	if entry.Symbol == "" {
		return model.DirectoryEntry{}, false
	}
	if entry.Name == "" {
		entry.Name = entry.Symbol
	}
	return entry, true
}

// writeJSON 以两个空格缩进写入 JSON，先写临时文件再重命名
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("重命名 %s 失败: %w", path, err)
	}
	return nil
}
