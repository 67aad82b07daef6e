// Package utils 查询参数清理工具
package utils

import (
	"strings"
	"unicode"
)

// LikeEscape LIKE 子句使用的转义字符,postgres、mysql 和 sqlite 均支持
const LikeEscape = "!"

// maxSearchLen 搜索词最大长度,超出部分截断
const maxSearchLen = 50

// CleanSearchTerm 去除首尾空白和控制字符,并限制长度
func CleanSearchTerm(term string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(term) {
		if unicode.IsControl(r) {
			continue
		}
		if n == maxSearchLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// ContainsPattern 构造包含匹配的 LIKE 模式,用户输入中的通配符按字面匹配
// 配合 "LIKE ? ESCAPE '!'" 使用
func ContainsPattern(term string) string {
	var b strings.Builder
	b.WriteString("%")
	for _, r := range term {
		switch r {
		case '!', '%', '_':
			b.WriteString(LikeEscape)
		}
		b.WriteRune(r)
	}
	b.WriteString("%")
	return b.String()
}
