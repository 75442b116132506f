package content

// AudioFile is a named audio asset with its resolved file URL.
type AudioFile struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Question is one door's immutable question record as authored in the CMS.
// DoorNumber uniquely identifies a question within a Year. The authoring
// invariant that Answer equals exactly one element of AnswerOptions is not
// enforced here.
type Question struct {
	DoorNumber    int        `json:"door_number"`
	Question      string     `json:"question"`
	Answer        string     `json:"answer"`
	AnswerOptions []string   `json:"answer_options"`
	Reward        int        `json:"reward"`
	AudioIntro    *AudioFile `json:"audiofile_intro,omitempty"`
	AudioQuestion *AudioFile `json:"audiofile_question,omitempty"`
	AudioOutro    *AudioFile `json:"audiofile_outro,omitempty"`
	Image         string     `json:"image,omitempty"`
}

// Year is one yearly edition of the calendar. Questions are stored unordered
// and looked up by door number.
type Year struct {
	Year      string     `json:"year"`
	Questions []Question `json:"questions"`
}

// FindQuestion returns the question behind a door, or nil when the CMS has
// no entry for it yet.
func (y *Year) FindQuestion(doorNumber int) *Question {
	for i := range y.Questions {
		if y.Questions[i].DoorNumber == doorNumber {
			return &y.Questions[i]
		}
	}
	return nil
}

// QuestionView is the client-facing projection of a Question. The answer
// stays server-side.
type QuestionView struct {
	DoorNumber    int        `json:"door_number"`
	Question      string     `json:"question"`
	AnswerOptions []string   `json:"answer_options"`
	Reward        int        `json:"reward"`
	AudioIntro    *AudioFile `json:"audiofile_intro,omitempty"`
	AudioQuestion *AudioFile `json:"audiofile_question,omitempty"`
	AudioOutro    *AudioFile `json:"audiofile_outro,omitempty"`
	Image         string     `json:"image,omitempty"`
}

// View strips the answer from a Question for delivery to clients.
func (q *Question) View() QuestionView {
	return QuestionView{
		DoorNumber:    q.DoorNumber,
		Question:      q.Question,
		AnswerOptions: q.AnswerOptions,
		Reward:        q.Reward,
		AudioIntro:    q.AudioIntro,
		AudioQuestion: q.AudioQuestion,
		AudioOutro:    q.AudioOutro,
		Image:         q.Image,
	}
}
