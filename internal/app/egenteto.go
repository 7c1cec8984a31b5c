package app

import (
	"strconv"

	"typologylab/internal/domain"
)

// FixedQuizSlug addresses the compiled-in quiz.
const FixedQuizSlug = "egen-teto"

const (
	tagEgenStrong = "egen-strong"
	tagEgenWeak   = "egen-weak"
	tagTetoWeak   = "teto-weak"
	tagTetoStrong = "teto-strong"
)

var egenTetoPrompts = [...]struct {
	text    string
	options [4]string
}{
	{"A friend starts telling you about something hard. You...", [4]string{
		`"That sounds so hard..." Empathy first!`,
		`Listen, then: "What if you tried this?"`,
		`"So what exactly is the problem?" Sort it out first`,
		`"Just let it go, that's life." Straight reality check`,
	}},
	{"Three days before a project deadline, you are the one who...", [4]string{
		"Watches everyone's pace and keeps the mood up",
		`Splits the work: "You take this, I'll take that"`,
		"Draws up the schedule and takes the lead",
		"Gets frustrated and pushes everything through alone",
	}},
	{"An argument with a friend is brewing. You...", [4]string{
		"Let it slide so things don't get awkward",
		"Talk around it while reading the room",
		"Speak a little firmly but keep it measured",
		"Say everything that needs saying and close it out",
	}},
	{"Your style in the group chat is...", [4]string{
		"Soft tone with lots of emoji",
		"Careful, trailing sentences",
		"Crisp and well organized",
		"One-word, straight-to-the-point replies",
	}},
	{"Someone points out a mistake you made. You...", [4]string{
		`Feel hurt but say "thank you"`,
		`Accept it while wondering "was it really?"`,
		"Feedback received, switching to improvement mode",
		`Push back: "Here's why I did it"`,
	}},
	{"When planning a trip, you...", [4]string{
		`Ask "Where does everyone want to go?" first`,
		"Split up roles and plan together",
		"Draft the route yourself, then share and adjust",
		"Decide everything yourself; efficiency wins",
	}},
	{"What matters most in a relationship?", [4]string{
		"Emotional empathy and talking on the same wavelength",
		"A healthy balance of understanding and expression",
		"Clear roles and matching efficiency",
		"Taking the lead and steering things",
	}},
	{`A friend says "I've been struggling lately." You...`, [4]string{
		"Hug them or hold their hand without a word",
		`"That must have been really hard..."`,
		`"How about changing it up like this?"`,
		`"Is it really that bad though?"`,
	}},
	{"Facing a new challenge, you...", [4]string{
		"Check who's involved and the mood first",
		"Watch how others react before deciding",
		"Act right away if there's a plan",
		"No second thoughts; go when it feels right",
	}},
	{"When someone makes a mistake, you...", [4]string{
		"Empathize first so they don't feel down",
		`Lighten the mood with "It's okay~"`,
		`Suggest "Let's try it this way next time"`,
		"Point it out immediately and wrap it up",
	}},
}

var egenTetoWeights = [4]struct {
	score int
	tag   string
}{
	{2, tagEgenStrong},
	{1, tagEgenWeak},
	{-1, tagTetoWeak},
	{-2, tagTetoStrong},
}

// EgenTetoQuiz returns a fresh copy of the compiled-in 10-question set.
func EgenTetoQuiz() domain.Quiz {
	questions := make([]domain.Question, 0, len(egenTetoPrompts))
	for i, p := range egenTetoPrompts {
		options := make([]domain.Option, 0, len(p.options))
		for j, text := range p.options {
			options = append(options, domain.Option{
				Text:  text,
				Score: egenTetoWeights[j].score,
				Type:  egenTetoWeights[j].tag,
			})
		}
		questions = append(questions, domain.Question{
			ID:      strconv.Itoa(i + 1),
			Text:    p.text,
			Options: options,
		})
	}
	return domain.Quiz{
		ID:           FixedQuizSlug,
		Slug:         FixedQuizSlug,
		Title:        "Egen-Teto Test",
		Description:  "Find out which hormone-style personality you lean toward",
		Emoji:        "🧪",
		StartMessage: "Pick your gender, then answer 10 quick questions.",
		Questions:    questions,
	}
}
