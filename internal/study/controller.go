// Package study implements the view controller: it owns the current
// module selection, the active view mode and the lifecycle of every
// asynchronous AI request, and it exposes a consistent snapshot for the
// presentation layer to render.
package study

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/certlab/studyguide/internal/curriculum"
	"github.com/certlab/studyguide/internal/progress"
)

// View enumerates the presentation modes. Exactly one is active at a time.
type View string

const (
	ViewReading  View = "reading"
	ViewQuiz     View = "quiz"
	ViewScenario View = "scenario"
	ViewAISearch View = "ai-search"
)

// Valid reports whether v is a known view mode.
func (v View) Valid() bool {
	switch v {
	case ViewReading, ViewQuiz, ViewScenario, ViewAISearch:
		return true
	}
	return false
}

// Content sources for quiz and scenario slots.
const (
	SourceStatic = "static"
	SourceAI     = "ai"
)

// Chat transcript roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// User-facing texts for normalized failure outcomes. Every failure path
// ends in one of these or in a static-content fallback — never a blank or
// indefinitely loading screen.
const (
	MsgAIDisabled          = "AI features are disabled. Configure an API key to enable the assistant."
	MsgSearchFailed        = "Sorry, I encountered an error while searching. Please try again."
	MsgQuizUnavailable     = "Couldn't generate questions this time. Please try again."
	MsgScenarioUnavailable = "No scenario available."
)

// Assistant is the AI gateway surface the controller depends on.
// Implemented by ai.Tutor; tests substitute fakes.
type Assistant interface {
	Enabled() bool
	AskQuestion(ctx context.Context, query, studyContext string) (string, error)
	GenerateQuiz(ctx context.Context, moduleTitle, content string) ([]curriculum.QuizQuestion, error)
	GenerateScenario(ctx context.Context, moduleTitle string) (string, error)
}

// SearchState is the free-form query slot.
type SearchState struct {
	Query   string `json:"query"`
	Loading bool   `json:"loading"`
	Answer  string `json:"answer,omitempty"`
	Err     string `json:"error,omitempty"`
}

// QuizState is the quiz slot.
type QuizState struct {
	Loading   bool                      `json:"loading"`
	Source    string                    `json:"source,omitempty"`
	Questions []curriculum.QuizQuestion `json:"questions,omitempty"`
	Err       string                    `json:"error,omitempty"`
}

// ScenarioState is the scenario slot, split for progressive disclosure.
type ScenarioState struct {
	Loading       bool   `json:"loading"`
	Source        string `json:"source,omitempty"`
	Overview      string `json:"overview,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	HasResolution bool   `json:"hasResolution"`
	Err           string `json:"error,omitempty"`
}

// ChatEntry is one turn of the chat transcript. The transcript is
// append-only: entries are never reordered or deleted.
type ChatEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ProgressState summarizes completion for the render layer.
type ProgressState struct {
	Completed  []string `json:"completed"`
	Count      int      `json:"count"`
	Total      int      `json:"total"`
	Percentage int      `json:"percentage"`
}

// State is a self-contained snapshot for rendering.
type State struct {
	ModuleID    string        `json:"moduleId"`
	ModuleTitle string        `json:"moduleTitle"`
	View        View          `json:"view"`
	AIEnabled   bool          `json:"aiEnabled"`
	Search      SearchState   `json:"search"`
	Quiz        QuizState     `json:"quiz"`
	Scenario    ScenarioState `json:"scenario"`
	Chat        []ChatEntry   `json:"chat"`
	Progress    ProgressState `json:"progress"`
}

// Controller coordinates user commands, the AI gateway and the progress
// tracker. All state lives behind one mutex; async completions re-acquire
// it and are discarded when their epoch no longer matches (the
// stale-result rule — a quiz requested for module A must never render
// against module B).
type Controller struct {
	catalog   *curriculum.Catalog
	tracker   *progress.Tracker
	assistant Assistant

	mu           sync.Mutex
	moduleID     string
	view         View
	epoch        uint64
	search       SearchState
	quiz         QuizState
	scenarioText string
	scenario     ScenarioState
	chat         []ChatEntry
	chatBusy     bool

	inflight sync.WaitGroup
	now      func() time.Time
}

// NewController creates a controller positioned on the first module in
// reading view. assistant may be nil, which behaves like a disabled one.
func NewController(catalog *curriculum.Catalog, tracker *progress.Tracker, assistant Assistant) *Controller {
	return &Controller{
		catalog:   catalog,
		tracker:   tracker,
		assistant: assistant,
		moduleID:  catalog.First().ID,
		view:      ViewReading,
		now:       time.Now,
	}
}

func (c *Controller) aiEnabled() bool {
	return c.assistant != nil && c.assistant.Enabled()
}

// SelectModule switches the current module, resets the view to reading
// and invalidates every in-flight AI request issued for the previous
// module. Unknown ids fall back to the first module.
func (c *Controller) SelectModule(id string) {
	mod := c.catalog.FindOrFirst(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.moduleID = mod.ID
	c.view = ViewReading
	c.epoch++
	c.search = SearchState{}
	c.quiz = QuizState{}
	c.scenario = ScenarioState{}
	c.scenarioText = ""
}

// SetView switches the active view. Entering quiz or scenario view loads
// static module content when available; otherwise it triggers a fresh
// fetch through the AI gateway scoped to the current module.
func (c *Controller) SetView(v View) error {
	if !v.Valid() {
		return fmt.Errorf("unknown view %q", v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.view = v
	switch v {
	case ViewQuiz:
		c.prepareQuizLocked()
	case ViewScenario:
		c.prepareScenarioLocked()
	}
	return nil
}

// prepareQuizLocked fills the quiz slot on entering quiz view. Static
// content wins; AI generation only runs when the module ships none.
func (c *Controller) prepareQuizLocked() {
	if c.quiz.Loading || len(c.quiz.Questions) > 0 {
		return
	}

	mod, _ := c.catalog.Find(c.moduleID)
	if len(mod.StaticQuizzes) > 0 {
		c.quiz = QuizState{Source: SourceStatic, Questions: mod.StaticQuizzes}
		return
	}
	c.startQuizFetchLocked()
}

func (c *Controller) prepareScenarioLocked() {
	if c.scenario.Loading || c.scenarioText != "" {
		return
	}

	mod, _ := c.catalog.Find(c.moduleID)
	if mod.StaticScenario != "" {
		c.setScenarioLocked(mod.StaticScenario, SourceStatic)
		return
	}
	c.startScenarioFetchLocked()
}

// RegenerateQuiz is the explicit opt-in AI refresh, used even when static
// content exists.
func (c *Controller) RegenerateQuiz() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startQuizFetchLocked()
}

// RegenerateScenario is the explicit opt-in AI refresh for the scenario.
func (c *Controller) RegenerateScenario() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startScenarioFetchLocked()
}

func (c *Controller) startQuizFetchLocked() {
	if c.quiz.Loading {
		return
	}
	if !c.aiEnabled() {
		c.fallbackQuizLocked(MsgAIDisabled)
		return
	}

	mod, _ := c.catalog.Find(c.moduleID)
	content := c.catalog.ModuleContent(c.moduleID)
	epoch := c.epoch
	c.quiz = QuizState{Loading: true}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		questions, err := c.assistant.GenerateQuiz(context.Background(), mod.Title, content)

		c.mu.Lock()
		defer c.mu.Unlock()
		if epoch != c.epoch {
			slog.Debug("discarding stale quiz result", "module_id", mod.ID)
			return
		}

		c.quiz.Loading = false
		if err != nil {
			slog.Warn("quiz generation failed", "module_id", mod.ID, "error", err)
			c.fallbackQuizLocked(MsgQuizUnavailable)
			return
		}
		if len(questions) == 0 {
			// Soft failure: malformed upstream payload.
			c.fallbackQuizLocked(MsgQuizUnavailable)
			return
		}
		c.quiz = QuizState{Source: SourceAI, Questions: questions}
	}()
}

// fallbackQuizLocked restores static content after a failed AI fetch, or
// records a legible error when the module has none.
func (c *Controller) fallbackQuizLocked(msg string) {
	mod, _ := c.catalog.Find(c.moduleID)
	if len(mod.StaticQuizzes) > 0 {
		c.quiz = QuizState{Source: SourceStatic, Questions: mod.StaticQuizzes}
		return
	}
	c.quiz = QuizState{Err: msg}
}

func (c *Controller) startScenarioFetchLocked() {
	if c.scenario.Loading {
		return
	}
	if !c.aiEnabled() {
		c.fallbackScenarioLocked(MsgAIDisabled)
		return
	}

	mod, _ := c.catalog.Find(c.moduleID)
	epoch := c.epoch
	c.scenario = ScenarioState{Loading: true}
	c.scenarioText = ""

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		text, err := c.assistant.GenerateScenario(context.Background(), mod.Title)

		c.mu.Lock()
		defer c.mu.Unlock()
		if epoch != c.epoch {
			slog.Debug("discarding stale scenario result", "module_id", mod.ID)
			return
		}

		c.scenario.Loading = false
		if err != nil {
			slog.Warn("scenario generation failed", "module_id", mod.ID, "error", err)
			c.fallbackScenarioLocked(MsgScenarioUnavailable)
			return
		}
		c.setScenarioLocked(text, SourceAI)
	}()
}

func (c *Controller) fallbackScenarioLocked(msg string) {
	mod, _ := c.catalog.Find(c.moduleID)
	if mod.StaticScenario != "" {
		c.setScenarioLocked(mod.StaticScenario, SourceStatic)
		return
	}
	c.scenario = ScenarioState{Err: msg}
	c.scenarioText = ""
}

func (c *Controller) setScenarioLocked(text, source string) {
	overview, resolution, found := SplitScenario(text)
	c.scenarioText = text
	c.scenario = ScenarioState{
		Source:        source,
		Overview:      overview,
		Resolution:    resolution,
		HasResolution: found,
	}
}

// SubmitQuery runs a free-form AI search. Empty or whitespace-only input
// is a no-op, as is submitting while a search is already in flight.
func (c *Controller) SubmitQuery(text string) {
	query := strings.TrimSpace(text)
	if query == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.search.Loading {
		return
	}
	if !c.aiEnabled() {
		c.view = ViewAISearch
		c.search = SearchState{Query: query, Err: MsgAIDisabled}
		return
	}

	mod, _ := c.catalog.Find(c.moduleID)
	epoch := c.epoch
	c.view = ViewAISearch
	c.search = SearchState{Query: query, Loading: true}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		answer, err := c.assistant.AskQuestion(context.Background(), query, "Current Module: "+mod.Title)

		c.mu.Lock()
		defer c.mu.Unlock()
		if epoch != c.epoch {
			slog.Debug("discarding stale search result", "query", query)
			return
		}

		c.search.Loading = false
		if err != nil {
			slog.Warn("ai search failed", "query", query, "error", err)
			c.search.Err = MsgSearchFailed
			return
		}
		c.search.Answer = answer
	}()
}

// ToggleTopic flips a topic's completion flag. View state is unchanged.
// Unknown topic ids are tolerated: they persist but stay inert.
func (c *Controller) ToggleTopic(topicID string) []string {
	if !c.catalog.HasTopic(topicID) {
		slog.Debug("toggling unknown topic id", "topic_id", topicID)
	}
	return c.tracker.Toggle(topicID)
}

// AskChat appends a user turn to the transcript, solicits a model turn
// and returns it. One chat turn may be in flight at a time; a submission
// while one is pending is suppressed (ok=false). The transcript is
// append-only and survives module switches, so replies are kept even when
// the module changed mid-turn. Failures become a legible model entry, not
// an error.
func (c *Controller) AskChat(ctx context.Context, text string) (reply ChatEntry, ok bool) {
	query := strings.TrimSpace(text)
	if query == "" {
		return ChatEntry{}, false
	}

	c.mu.Lock()
	if c.chatBusy {
		c.mu.Unlock()
		return ChatEntry{}, false
	}

	c.chat = append(c.chat, ChatEntry{Role: RoleUser, Text: query, At: c.now()})

	if !c.aiEnabled() {
		reply = ChatEntry{Role: RoleModel, Text: MsgAIDisabled, At: c.now()}
		c.chat = append(c.chat, reply)
		c.mu.Unlock()
		return reply, true
	}

	mod, _ := c.catalog.Find(c.moduleID)
	c.chatBusy = true
	c.mu.Unlock()

	answer, err := c.assistant.AskQuestion(ctx, query, "Current Module: "+mod.Title)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatBusy = false
	if err != nil {
		slog.Warn("chat turn failed", "error", err)
		reply = ChatEntry{Role: RoleModel, Text: MsgSearchFailed, At: c.now()}
	} else {
		reply = ChatEntry{Role: RoleModel, Text: answer, At: c.now()}
	}
	c.chat = append(c.chat, reply)
	return reply, true
}

// ChatTranscript returns a copy of the transcript.
func (c *Controller) ChatTranscript() []ChatEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatEntry{}, c.chat...)
}

// Snapshot returns a deep copy of the current state for rendering.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	mod, _ := c.catalog.Find(c.moduleID)

	quiz := c.quiz
	quiz.Questions = append([]curriculum.QuizQuestion{}, c.quiz.Questions...)

	return State{
		ModuleID:    c.moduleID,
		ModuleTitle: mod.Title,
		View:        c.view,
		AIEnabled:   c.aiEnabled(),
		Search:      c.search,
		Quiz:        quiz,
		Scenario:    c.scenario,
		Chat:        append([]ChatEntry{}, c.chat...),
		Progress: ProgressState{
			Completed:  c.tracker.CompletedIDs(),
			Count:      c.tracker.Count(),
			Total:      c.catalog.TotalTopics(),
			Percentage: c.tracker.Percentage(c.catalog.TotalTopics()),
		},
	}
}
