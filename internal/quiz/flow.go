package quiz

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Step is the question form's position in its flow. Intro, question and
// outro form the main progression; already_answered is the alternate initial
// step when the door was finalized in an earlier session.
type Step string

const (
	StepIntro           Step = "intro"
	StepQuestion        Step = "question"
	StepOutro           Step = "outro"
	StepAlreadyAnswered Step = "already_answered"
)

func validStep(s Step) bool {
	switch s {
	case StepIntro, StepQuestion, StepOutro, StepAlreadyAnswered:
		return true
	}
	return false
}

// Session is the durable state of one player's flow through one door's
// question. It is persisted on every transition so a reload resumes
// mid-flow.
type Session struct {
	Step      Step       `json:"step"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Submitted bool       `json:"submitted,omitempty"`
	Correct   bool       `json:"correct,omitempty"`
}

// sessionKey namespaces the persisted form step by player, door and year so
// flows cannot collide across doors or accounts.
func sessionKey(playerID uuid.UUID, year string, doorNumber int) string {
	return fmt.Sprintf("player:%s:currentFormStep-door-%d-year-%s", playerID, doorNumber, year)
}

// Result is the outcome of an answer submission.
type Result struct {
	Correct bool `json:"correct"`
	// Reward granted; zero for a wrong answer.
	Reward int `json:"reward"`
	// TotalScore is the player's cumulative year score after the update,
	// when one was made.
	TotalScore *int `json:"total_score,omitempty"`
	// CorrectAnswer is revealed only after a wrong answer.
	CorrectAnswer string `json:"correct_answer,omitempty"`
	// Resubmitted marks a duplicate submission that changed nothing.
	Resubmitted bool `json:"resubmitted,omitempty"`
}
