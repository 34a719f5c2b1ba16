package orm

import (
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// TableName 由模型名推断表名：list -> lists，category -> categories。
func TableName(model string) string {
	return inflection.Plural(strings.ToLower(model))
}

// Singular 由表名或关联名推断模型名：items -> item。
func Singular(name string) string {
	return inflection.Singular(strings.ToLower(name))
}

// DisplayName 模型的展示名：line_item -> LineItem。
func DisplayName(model string) string {
	parts := strings.Split(strings.ToLower(model), "_")
	for i, p := range parts {
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, "")
}

// ForeignKey 指向某模型的默认外键列：list -> list_id。
func ForeignKey(model string) string {
	return Singular(model) + "_id"
}

// JoinTableName 多对多中间表默认名：两侧表名排序后以下划线连接（lists_tags）。
func JoinTableName(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return names[0] + "_" + names[1]
}
