// Package content 加载游戏内容：有序题目列表与引导对话的示例帖子。
// 内容文件只存翻译 key 与结构字段，不存任何展示文案。
package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"prebunk/server/internal/model"
)

// Library 一次加载、只读使用的内容库。
type Library struct {
	examplePost model.Post
	questions   []model.Question
	byID        map[string]model.Question
}

type contentFile struct {
	ExamplePost model.Post       `yaml:"example_post"`
	Questions   []model.Question `yaml:"questions"`
}

// Load 从 YAML 文件加载内容库并校验。
// 校验：题目 id 非空且唯一，correct_answer 合法。
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	var file contentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	byID := make(map[string]model.Question, len(file.Questions))
	for i, q := range file.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: empty id", i)
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		if !q.CorrectAnswer.Valid() {
			return nil, fmt.Errorf("question %q: invalid correct_answer %q", q.ID, q.CorrectAnswer)
		}
		byID[q.ID] = q
	}

	return &Library{
		examplePost: file.ExamplePost,
		questions:   file.Questions,
		byID:        byID,
	}, nil
}

// ExamplePost 引导对话 step2 揭示时嵌入的示例帖子。
func (l *Library) ExamplePost() model.Post { return l.examplePost }

// Questions 按固定顺序返回全部题目（副本）。
func (l *Library) Questions() []model.Question {
	out := make([]model.Question, len(l.questions))
	copy(out, l.questions)
	return out
}

// QuestionIDs 题目 id 的有序列表。
func (l *Library) QuestionIDs() []string {
	ids := make([]string, len(l.questions))
	for i, q := range l.questions {
		ids[i] = q.ID
	}
	return ids
}

// Question 按 id 查题。
func (l *Library) Question(id string) (model.Question, bool) {
	q, ok := l.byID[id]
	return q, ok
}

// QuestionAt 按下标查题。
func (l *Library) QuestionAt(i int) (model.Question, bool) {
	if i < 0 || i >= len(l.questions) {
		return model.Question{}, false
	}
	return l.questions[i], true
}

// Len 题目数量。
func (l *Library) Len() int { return len(l.questions) }
