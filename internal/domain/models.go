package domain

import (
	"strings"
	"time"
)

// Demographic is the attribute chosen once before a fixed quiz traversal begins.
type Demographic string

const (
	DemographicMale   Demographic = "male"
	DemographicFemale Demographic = "female"
)

// ParseDemographic normalizes user input into a known Demographic.
func ParseDemographic(raw string) (Demographic, error) {
	switch d := Demographic(strings.ToLower(strings.TrimSpace(raw))); d {
	case DemographicMale, DemographicFemale:
		return d, nil
	default:
		return "", ErrUnknownDemographic
	}
}

// Archetype identifies one of the fixed quiz outcomes.
type Archetype string

const (
	ArchetypeEgenMale   Archetype = "egen-male"
	ArchetypeEgenFemale Archetype = "egen-female"
	ArchetypeTetoMale   Archetype = "teto-male"
	ArchetypeTetoFemale Archetype = "teto-female"
	ArchetypeMixed      Archetype = "mixed"
)

// Archetypes lists every fixed quiz outcome in display order.
var Archetypes = []Archetype{
	ArchetypeEgenMale,
	ArchetypeEgenFemale,
	ArchetypeTetoMale,
	ArchetypeTetoFemale,
	ArchetypeMixed,
}

// Option is one answer choice; Score is the weight added to the running total.
type Option struct {
	ID    string `json:"id,omitempty"`
	Text  string `json:"text"`
	Score int    `json:"score"`
	Type  string `json:"type,omitempty"` // descriptive tag, fixed quiz only
}

// Question is presented with its options in authoring order.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"question_options"`
}

// ConditionScore is the only condition type evaluated by the dynamic classifier.
const ConditionScore = "score"

// ScoreRange is inclusive on both ends.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether total falls inside the range.
func (r ScoreRange) Contains(total int) bool {
	t := float64(total)
	return t >= r.Min && t <= r.Max
}

// ResultRecord is an admin-authored outcome of a dynamic quiz.
type ResultRecord struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ConditionType   string     `json:"condition_type"`
	ConditionValue  ScoreRange `json:"condition_value"`
	Keywords        []string   `json:"keywords,omitempty"`
	Recommendations []string   `json:"recommendations,omitempty"`
	BackgroundImage string     `json:"background_image,omitempty"`
}

// Quiz is a question set plus, for dynamic quizzes, its ordered result records.
type Quiz struct {
	ID           string         `json:"id"`
	Slug         string         `json:"slug,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Emoji        string         `json:"emoji"`
	StartMessage string         `json:"start_message"`
	Questions    []Question     `json:"questions"`
	Results      []ResultRecord `json:"test_results"`
}

// SavedResult is the write-once record of a completed fixed quiz attempt.
type SavedResult struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string      `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Gender    Demographic `json:"gender" bson:"gender"`
	Result    Archetype   `json:"result" bson:"result"`
	Score     int         `json:"score" bson:"score"`
	Answers   []int       `json:"answers" bson:"answers"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}

// UserResponse is the write-once record of a completed dynamic quiz attempt.
type UserResponse struct {
	ID        string         `json:"id,omitempty" bson:"_id,omitempty"`
	TestID    string         `json:"test_id" bson:"test_id"`
	SessionID string         `json:"session_id" bson:"session_id"`
	Answers   []int          `json:"answers" bson:"answers"`
	ResultID  string         `json:"result_id,omitempty" bson:"result_id,omitempty"`
	Score     int            `json:"score" bson:"score"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// ResultFilter narrows a results listing. Zero values match everything; Limit <= 0 means no limit.
type ResultFilter struct {
	Gender Demographic
	Result Archetype
	UserID string
	Limit  int
}

// Matches reports whether r satisfies every set field of the filter.
func (f ResultFilter) Matches(r SavedResult) bool {
	if f.Gender != "" && r.Gender != f.Gender {
		return false
	}
	if f.Result != "" && r.Result != f.Result {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	return true
}

// ResultStats aggregates saved fixed quiz results.
type ResultStats struct {
	Total        int                 `json:"total"`
	ByArchetype  map[Archetype]int   `json:"by_archetype"`
	ByGender     map[Demographic]int `json:"by_gender"`
	AverageScore float64             `json:"average_score"`

	scoreSum int
}

// NewResultStats returns empty stats listing every archetype.
func NewResultStats() ResultStats {
	stats := ResultStats{
		ByArchetype: make(map[Archetype]int, len(Archetypes)),
		ByGender:    make(map[Demographic]int, 2),
	}
	for _, a := range Archetypes {
		stats.ByArchetype[a] = 0
	}
	return stats
}

// Add folds in count results sharing an archetype and gender whose scores sum to scoreSum.
func (s *ResultStats) Add(result Archetype, gender Demographic, count, scoreSum int) {
	if count <= 0 {
		return
	}
	s.Total += count
	s.ByArchetype[result] += count
	s.ByGender[gender] += count
	s.scoreSum += scoreSum
	s.AverageScore = float64(s.scoreSum) / float64(s.Total)
}

// AttemptSnapshot is the serializable state of one traversal session.
// The current index is len(Weights).
type AttemptSnapshot struct {
	ID            string      `json:"id"`
	QuizSlug      string      `json:"quiz_slug"`
	UserID        string      `json:"user_id,omitempty"`
	Started       bool        `json:"started"`
	Demographic   Demographic `json:"demographic,omitempty"`
	Weights       []int       `json:"weights"`
	QuestionCount int         `json:"question_count"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// User is the identity attached to a request, if any.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
}
