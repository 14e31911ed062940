package model

// Answer 用户对一条帖子的判定。
type Answer string

const (
	AnswerLike    Answer = "like"
	AnswerDislike Answer = "dislike"
)

// Valid 判断 Answer 是否是两个合法取值之一。
func (a Answer) Valid() bool {
	return a == AnswerLike || a == AnswerDislike
}

// Question 信息流中的一条内容（一道“题”）。
// Why 字段同样是翻译 key，答题后由渲染层解析展示。
type Question struct {
	ID                 string `json:"id" yaml:"id"`
	CorrectAnswer      Answer `json:"correct_answer" yaml:"correct_answer"`
	Post               Post   `json:"post" yaml:"post"`
	WhyCorrectAnswer   string `json:"why_correct_answer" yaml:"why_correct_answer"`
	WhyIncorrectAnswer string `json:"why_incorrect_answer" yaml:"why_incorrect_answer"`
}

// GameSnapshot 游戏进度的持久化快照。
type GameSnapshot struct {
	SessionID            string            `json:"session_id"`
	Answers              map[string]Answer `json:"answers"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	Credibility          int               `json:"credibility"`
	Points               int               `json:"points"`
}

// NewGameResponse /api/new-game 的响应。
type NewGameResponse struct {
	Order     []int      `json:"order"`
	Questions []Question `json:"questions"`
	Max       int        `json:"max"`
}
