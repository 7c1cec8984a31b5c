package app

import "typologylab/internal/domain"

// ArchetypeContent is the display record owned by each fixed quiz archetype.
type ArchetypeContent struct {
	Title           string
	Emoji           string
	Description     string
	Characteristics []string
	BackgroundImage string
}

var archetypeContent = map[domain.Archetype]ArchetypeContent{
	domain.ArchetypeEgenMale: {
		Title:       "Egen Man",
		Emoji:       "🤝",
		Description: "Reads hearts before words. Sensitive yet strong inside, you are the quiet center of the team and a warm leader.",
		Characteristics: []string{
			"Picks up emotional currents quickly and leads the mood with empathy",
			"Quiet on the outside but a deep comfort to someone",
			"Humble and considerate, often the mediator of the group",
			"Resolves conflict gently rather than bluntly",
			"Tends to put other people's happiness first",
		},
		BackgroundImage: "/images/egen-teto/bg-egen-male.png",
	},
	domain.ArchetypeEgenFemale: {
		Title:       "Egen Woman",
		Emoji:       "💕",
		Description: "Warmth that seeps in naturally. Delicate and emotional, you are a safe harbor for the people around you.",
		Characteristics: []string{
			"Every word carries sincerity and puts listeners at ease",
			"The first to comfort someone who looks sad",
			"Keeps emotions steady and spreads calm energy",
			"A mood maker with gentle, unshowy leadership",
			"Sensitive to others' moods and attentive in return",
		},
		BackgroundImage: "/images/egen-teto/bg-egen-female.png",
	},
	domain.ArchetypeTetoMale: {
		Title:       "Teto Man",
		Emoji:       "💪",
		Description: "Straight ahead, no detours. You say what needs saying, own it to the end, and carry a solid presence.",
		Characteristics: []string{
			"Frank, bold communication that settles conflict fast",
			"Action over plans, deeds over words",
			"Naturally takes the leader or driver role on a team",
			"Loyal and fair, quick to stand with the underdog",
			"Looks cool-headed but turns out warm up close",
		},
		BackgroundImage: "/images/egen-teto/bg-teto-male.png",
	},
	domain.ArchetypeTetoFemale: {
		Title:       "Teto Woman",
		Emoji:       "🔥",
		Description: "Resolute and confident, the life of the party. No hesitation in front of a challenge.",
		Characteristics: []string{
			"Leader energy that stands out in any crowd",
			"Drive that sees every goal through",
			"Clear opinions, expressed without hesitation",
			"Looks after herself while pulling others along",
			"Adapts quickly to new places and enjoys change",
		},
		BackgroundImage: "/images/egen-teto/bg-teto-female.png",
	},
	domain.ArchetypeMixed: {
		Title:       "Mixed Type",
		Emoji:       "⚖️",
		Description: "Egen sensitivity and teto drive in one balanced person. You find your own best answer in any situation.",
		Characteristics: []string{
			"Warm with people, cool-headed with problems",
			"Moves fluidly between feeling and logic to fit the moment",
			"Tends to end up at the center of any group",
			"Gets along with every kind of personality",
			"Blends emotion and reason into decisions without regret",
		},
		BackgroundImage: "/images/egen-teto/bg-mixed.jpg",
	},
}

// LookupArchetype returns the display record for a fixed quiz archetype.
func LookupArchetype(a domain.Archetype) (ArchetypeContent, bool) {
	c, ok := archetypeContent[a]
	return c, ok
}

// The enrichment tables below are indexed by Band, not by archetype.

var compatibleByBand = [...][]string{
	BandVeryHigh: {"Leader", "Adventurer", "Innovator", "Challenger"},
	BandHigh:     {"Socializer", "Activist", "Enthusiast", "Driver"},
	BandBalanced: {"Harmonizer", "Mediator", "Stabilizer", "Collaborator"},
	BandLow:      {"Analyst", "Planner", "Cautious", "Thinker"},
	BandVeryLow:  {"Introvert", "Observer", "Perfectionist", "Peacemaker"},
}

var careersByBand = [...][]string{
	BandVeryHigh: {"CEO", "Founder", "Sales Manager", "Marketing Director", "Project Manager", "Consultant"},
	BandHigh:     {"Sales Representative", "Event Planner", "Broadcaster", "Teacher", "PR Specialist", "Tour Guide"},
	BandBalanced: {"HR Manager", "Counselor", "Nurse", "Social Worker", "Coordinator", "Mediator"},
	BandLow:      {"Researcher", "Data Analyst", "Accountant", "Lawyer", "Librarian", "Editor"},
	BandVeryLow:  {"Writer", "Artist", "Programmer", "Translator", "Architect", "Designer"},
}

var keywordAdjectiveByBand = [...]string{
	BandVeryHigh: "Daring",
	BandHigh:     "Lively",
	BandBalanced: "Balanced",
	BandLow:      "Thoughtful",
	BandVeryLow:  "Calm",
}

// CompatibleArchetypes returns four compatible type labels for a total.
func CompatibleArchetypes(total int) []string {
	return cloneStrings(compatibleByBand[DescriptiveBand(total)])
}

// CareerSuggestions returns six career labels for a total.
func CareerSuggestions(total int) []string {
	return cloneStrings(careersByBand[DescriptiveBand(total)])
}

// PersonalityKeyword combines the band adjective with the demographic noun.
func PersonalityKeyword(total int, d domain.Demographic) string {
	noun := "Woman"
	if d == domain.DemographicMale {
		noun = "Man"
	}
	return keywordAdjectiveByBand[DescriptiveBand(total)] + " " + noun
}

// Outcome is the full display payload of a completed attempt.
type Outcome struct {
	QuizSlug        string           `json:"quiz"`
	Score           int              `json:"score"`
	Matched         bool             `json:"matched"`
	Archetype       domain.Archetype `json:"archetype,omitempty"`
	ResultID        string           `json:"result_id,omitempty"`
	Title           string           `json:"title,omitempty"`
	Emoji           string           `json:"emoji,omitempty"`
	Description     string           `json:"description,omitempty"`
	Characteristics []string         `json:"characteristics,omitempty"`
	BackgroundImage string           `json:"background_image,omitempty"`
	Commentary      string           `json:"commentary,omitempty"`
	Compatible      []string         `json:"compatible,omitempty"`
	Careers         []string         `json:"careers,omitempty"`
	Keyword         string           `json:"keyword,omitempty"`
	Keywords        []string         `json:"keywords,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
}

// PresentFixed classifies a fixed quiz total and builds its payload.
func PresentFixed(total int, d domain.Demographic) (Outcome, error) {
	archetype, err := Classify(total, d)
	if err != nil {
		return Outcome{}, err
	}
	content := archetypeContent[archetype]
	return Outcome{
		QuizSlug:        FixedQuizSlug,
		Score:           total,
		Matched:         true,
		Archetype:       archetype,
		Title:           content.Title,
		Emoji:           content.Emoji,
		Description:     content.Description,
		Characteristics: cloneStrings(content.Characteristics),
		BackgroundImage: content.BackgroundImage,
		Commentary:      ScoreCommentary(total),
		Compatible:      CompatibleArchetypes(total),
		Careers:         CareerSuggestions(total),
		Keyword:         PersonalityKeyword(total, d),
	}, nil
}

// PresentDynamic matches a dynamic quiz total against the quiz's authored results.
// An unmatched total yields the bare score with Matched false.
func PresentDynamic(total int, quiz domain.Quiz) Outcome {
	out := Outcome{QuizSlug: quiz.Slug, Score: total}
	record, ok := MatchResult(total, quiz.Results)
	if !ok {
		return out
	}
	out.Matched = true
	out.ResultID = record.ID
	out.Title = record.Title
	out.Description = record.Description
	out.BackgroundImage = record.BackgroundImage
	out.Keywords = cloneStrings(record.Keywords)
	out.Recommendations = cloneStrings(record.Recommendations)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
