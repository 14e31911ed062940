package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLocales(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write locale %s: %v", name, err)
		}
	}
	return dir
}

// TestTranslationFallbackChain 验证缺译的两级兜底。
// 场景：未知 locale 退到默认 locale；默认 locale 也没有的 key 原样返回。
func TestTranslationFallbackChain(t *testing.T) {
	dir := writeLocales(t, map[string]string{
		"en.yaml": "step1.greeting: \"Hi, I'm Paula!\"\n",
		"es.yaml": "step1.greeting: \"¡Hola, soy Paula!\"\n",
	})

	b, err := LoadDir(dir, "en")
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}

	if got := b.T("es", "step1.greeting"); got != "¡Hola, soy Paula!" {
		t.Fatalf("expected spanish text, got %q", got)
	}
	if got := b.T("fr", "step1.greeting"); got != "Hi, I'm Paula!" {
		t.Fatalf("expected fallback to default locale, got %q", got)
	}
	if got := b.T("en", "missing.key"); got != "missing.key" {
		t.Fatalf("expected key echoed back, got %q", got)
	}
}

// TestLoadDirRequiresDefaultLocale 验证默认 locale 必须存在。
// 场景：目录里没有 default_locale 对应文件时 LoadDir 报错。
func TestLoadDirRequiresDefaultLocale(t *testing.T) {
	dir := writeLocales(t, map[string]string{
		"es.yaml": "step1.greeting: hola\n",
	})
	if _, err := LoadDir(dir, "en"); err == nil {
		t.Fatalf("expected missing default locale error")
	}
}

// TestTableReturnsCopy 验证 Table 的只读语义。
// 场景：改动返回的表不影响后续翻译结果。
func TestTableReturnsCopy(t *testing.T) {
	dir := writeLocales(t, map[string]string{
		"en.yaml": "step1.greeting: hello\n",
	})
	b, err := LoadDir(dir, "en")
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}

	table := b.Table("en")
	table["step1.greeting"] = "tampered"

	if got := b.T("en", "step1.greeting"); got != "hello" {
		t.Fatalf("table mutation leaked into bundle: %q", got)
	}
}

// TestTranslatorBindsLocale 验证绑定 locale 的翻译函数。
// 场景：Translator("es") 返回的函数等价于 T("es", key)。
func TestTranslatorBindsLocale(t *testing.T) {
	dir := writeLocales(t, map[string]string{
		"en.yaml": "step1.option1: skip\n",
		"es.yaml": "step1.option1: saltar\n",
	})
	b, err := LoadDir(dir, "en")
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}

	tr := b.Translator("es")
	if got := tr("step1.option1"); got != "saltar" {
		t.Fatalf("expected bound locale translation, got %q", got)
	}
}
