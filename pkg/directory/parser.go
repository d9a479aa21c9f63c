package directory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dewei/StockScreener/pkg/model"
)

// nasdaqtraded.txt 字段位置
const (
	colSymbol    = 1
	colName      = 2
	colExchange  = 3
	colETF       = 5
	colTestIssue = 7

	minColumns      = colTestIssue + 1
	maxSymbolLength = 5
	defaultExchange = "NASDAQ"
	fieldSeparator  = "|"
)

var (
	// ErrEmptyFeed 目录文件为空
	ErrEmptyFeed = errors.New("代码目录为空")
	// ErrMalformedHeader 表头列数不足
	ErrMalformedHeader = errors.New("代码目录表头格式错误")
)

// Summary 解析统计
type Summary struct {
	Lines      int            `json:"lines"`
	Total      int            `json:"total"`
	Stocks     int            `json:"stocks"`
	ETFs       int            `json:"etfs"`
	Skipped    int            `json:"skipped"`
	ByExchange map[string]int `json:"byExchange"`
}

// ParseResult 解析结果
type ParseResult struct {
	Entries []model.DirectoryEntry
	Summary Summary
}

// Symbols 返回全部代码，顺序与 Entries 一致
func (r *ParseResult) Symbols() []string {
	symbols := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		symbols[i] = e.Symbol
	}
	return symbols
}

// Parse 解析以 | 分隔的代码目录
//
// 第一行为表头，只校验列数；最后一个非空行为页脚，不参与解析。
// 同一代码出现多次时保留最后一次的内容，位置以第一次出现为准。
func Parse(r io.Reader) (*ParseResult, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyFeed
	}

	header := strings.Split(lines[0], fieldSeparator)
	if len(header) < minColumns {
		return nil, fmt.Errorf("%w: 需要至少 %d 列，实际 %d 列", ErrMalformedHeader, minColumns, len(header))
	}

	var body []string
	if len(lines) > 2 {
		body = lines[1 : len(lines)-1]
	}

	result := &ParseResult{
		Entries: make([]model.DirectoryEntry, 0, len(body)),
		Summary: Summary{Lines: len(lines), ByExchange: make(map[string]int)},
	}
	index := make(map[string]int, len(body))

	for _, line := range body {
		entry, ok := parseLine(line)
		if !ok {
			result.Summary.Skipped++
			continue
		}

		if i, seen := index[entry.Symbol]; seen {
			result.Entries[i] = entry
			continue
		}
		index[entry.Symbol] = len(result.Entries)
		result.Entries = append(result.Entries, entry)
	}

	result.Summary.Total = len(result.Entries)
	for _, e := range result.Entries {
		if e.IsETF {
			result.Summary.ETFs++
		} else {
			result.Summary.Stocks++
		}
		result.Summary.ByExchange[e.Exchange]++
	}

	return result, nil
}

// parseLine 解析单行并应用排除规则
func parseLine(line string) (model.DirectoryEntry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.DirectoryEntry{}, false
	}

	values := strings.Split(line, fieldSeparator)
	if len(values) < minColumns {
		return model.DirectoryEntry{}, false
	}
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}

	symbol := values[colSymbol]
	switch {
	case symbol == "":
		return model.DirectoryEntry{}, false
	case values[colTestIssue] == "Y":
		return model.DirectoryEntry{}, false
	case len(symbol) > maxSymbolLength:
		return model.DirectoryEntry{}, false
	case strings.ContainsAny(symbol, ".-^"):
		return model.DirectoryEntry{}, false
	}

	name := values[colName]
	if name == "" {
		name = symbol
	}
	exchange := values[colExchange]
	if exchange == "" {
		exchange = defaultExchange
	}

	return model.DirectoryEntry{
		Symbol:   symbol,
		Name:     name,
		Exchange: exchange,
		IsETF:    values[colETF] == "Y",
	}, true
}

// readLines 读取全部行，去掉行尾 \r 和末尾空行
func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取代码目录失败: %w", err)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
