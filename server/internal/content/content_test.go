package content

import (
	"os"
	"path/filepath"
	"testing"
)

func writeContent(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write content file: %v", err)
	}
	return path
}

// TestLoadValidContent 验证内容库的加载与索引。
// 场景：合法 YAML 加载后题目保持文件顺序，按 id 与下标都能取到。
func TestLoadValidContent(t *testing.T) {
	path := writeContent(t, `
example_post:
  name: Echo
  handle: "@echo"
  content_key: echoPost
questions:
  - id: "1"
    correct_answer: like
    why_correct_answer: post1.why_correct
    why_incorrect_answer: post1.why_incorrect
  - id: "2"
    correct_answer: dislike
    why_correct_answer: post2.why_correct
    why_incorrect_answer: post2.why_incorrect
`)

	lib, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lib.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", lib.Len())
	}
	if lib.ExamplePost().ContentKey != "echoPost" {
		t.Fatalf("example post not loaded: %+v", lib.ExamplePost())
	}
	if ids := lib.QuestionIDs(); ids[0] != "1" || ids[1] != "2" {
		t.Fatalf("question order not preserved: %v", ids)
	}
	if q, ok := lib.Question("2"); !ok || q.CorrectAnswer != "dislike" {
		t.Fatalf("lookup by id failed: %+v ok=%v", q, ok)
	}
	if q, ok := lib.QuestionAt(0); !ok || q.ID != "1" {
		t.Fatalf("lookup by index failed: %+v ok=%v", q, ok)
	}
	if _, ok := lib.QuestionAt(5); ok {
		t.Fatalf("out-of-range index must miss")
	}
}

// TestLoadRejectsDuplicateIDs 验证 id 唯一性校验。
// 场景：两条题目同 id，Load 必须报错。
func TestLoadRejectsDuplicateIDs(t *testing.T) {
	path := writeContent(t, `
questions:
  - id: "1"
    correct_answer: like
  - id: "1"
    correct_answer: dislike
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

// TestLoadRejectsInvalidAnswer 验证 correct_answer 校验。
// 场景：like/dislike 之外的值必须被拒绝。
func TestLoadRejectsInvalidAnswer(t *testing.T) {
	path := writeContent(t, `
questions:
  - id: "1"
    correct_answer: maybe
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected invalid answer error")
	}
}
