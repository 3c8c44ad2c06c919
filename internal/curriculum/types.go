// Package curriculum holds the immutable study-guide catalog: modules,
// topics with layered explanations, and optional pre-authored quiz and
// scenario content. The catalog is loaded once at startup and never
// mutated afterwards.
package curriculum

// Module is a top-level curriculum unit grouping related topics.
type Module struct {
	ID             string         `yaml:"id" json:"id"`
	Title          string         `yaml:"title" json:"title"`
	Description    string         `yaml:"description" json:"description"`
	Topics         []Topic        `yaml:"topics" json:"topics"`
	StaticQuizzes  []QuizQuestion `yaml:"static_quizzes,omitempty" json:"staticQuizzes,omitempty"`
	StaticScenario string         `yaml:"static_scenario,omitempty" json:"staticScenario,omitempty"`
}

// Topic is a single concept within a module. Each topic carries three
// alternative explanations keyed by detail level, an industrial use case
// and a short list of takeaways.
type Topic struct {
	ID                  string   `yaml:"id" json:"id"`
	Title               string   `yaml:"title" json:"title"`
	ShortExplanation    string   `yaml:"short_explanation" json:"shortExplanation"`
	ModerateExplanation string   `yaml:"moderate_explanation" json:"moderateExplanation"`
	DetailedExplanation string   `yaml:"detailed_explanation" json:"detailedExplanation"`
	IndustrialUseCase   string   `yaml:"industrial_use_case" json:"industrialUseCase"`
	KeyTakeaways        []string `yaml:"key_takeaways" json:"keyTakeaways"`
}

// DetailLevel selects one of a topic's explanation variants.
type DetailLevel string

const (
	DetailShort    DetailLevel = "short"
	DetailModerate DetailLevel = "moderate"
	DetailFull     DetailLevel = "detail"
)

// Explanation returns the explanation text for the given detail level.
// Unknown levels fall back to the moderate explanation.
func (t Topic) Explanation(level DetailLevel) string {
	switch level {
	case DetailShort:
		return t.ShortExplanation
	case DetailFull:
		return t.DetailedExplanation
	default:
		return t.ModerateExplanation
	}
}

// QuizQuestion is a multiple-choice question. CorrectAnswer is a zero-based
// index into Options. Both bundled and AI-generated questions must satisfy
// Valid; a generated question that does not is a malformed response, not a
// usable entity.
type QuizQuestion struct {
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correct_answer" json:"correctAnswer"`
	Explanation   string   `yaml:"explanation" json:"explanation"`
}

// Valid reports whether the question satisfies the answer-index invariant.
func (q QuizQuestion) Valid() bool {
	return len(q.Options) >= 2 && q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options)
}
