// Package i18n 提供翻译端口：key -> string。
// 核心引擎只产出翻译 key；渲染层（或这里的 API 辅助字段）按 locale 解析。
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle 按 locale 组织的翻译表。
type Bundle struct {
	defaultLocale string
	messages      map[string]map[string]string
}

// LoadDir 扫描目录下的 <locale>.yaml 文件构建 Bundle。
// 文件内容是扁平的 key -> string 表（key 可带点号命名空间）。
func LoadDir(dir, defaultLocale string) (*Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	messages := make(map[string]map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		locale := strings.TrimSuffix(name, ".yaml")

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", locale, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", locale, err)
		}
		messages[locale] = table
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("no locale files in %s", dir)
	}
	if _, ok := messages[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q not found in %s", defaultLocale, dir)
	}

	return &Bundle{defaultLocale: defaultLocale, messages: messages}, nil
}

// T 解析翻译 key。locale 未知时退到默认 locale；key 未知时原样返回 key，
// 保证缺译不会让界面变空白。
func (b *Bundle) T(locale, key string) string {
	if table, ok := b.messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if locale != b.defaultLocale {
		if msg, ok := b.messages[b.defaultLocale][key]; ok {
			return msg
		}
	}
	return key
}

// Locales 已加载的 locale 列表。
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.messages))
	for locale := range b.messages {
		out = append(out, locale)
	}
	return out
}

// Translator 绑定单个 locale 的查找函数，满足 t(key) -> string 契约。
func (b *Bundle) Translator(locale string) func(key string) string {
	return func(key string) string { return b.T(locale, key) }
}

// Table 返回某个 locale 的完整翻译表副本（客户端一次性拉取用）。
// locale 未知时返回默认 locale 的表。
func (b *Bundle) Table(locale string) map[string]string {
	table, ok := b.messages[locale]
	if !ok {
		table = b.messages[b.defaultLocale]
	}
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}
