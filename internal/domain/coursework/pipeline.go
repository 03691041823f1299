package coursework

// Question is one enumerated question recovered from the assignment text.
type Question struct {
	ID                string   `json:"id"`
	MainQuestion      string   `json:"mainQuestion"`
	SubParts          []string `json:"subParts"`
	HasFigure         bool     `json:"hasFigure"`
	FigureDescription string   `json:"figureDescription"`
}

type ContentMetadata struct {
	Subject string   `json:"subject"`
	Topics  []string `json:"topics"`
}

// ValidatedContent is the structured form of the combined text. When Error is set
// the list is unusable and CleanedContent holds the locally cleaned text only.
type ValidatedContent struct {
	TotalQuestions int             `json:"totalQuestions"`
	QuestionList   []Question      `json:"questionList"`
	CleanedContent string          `json:"cleanedContent"`
	Metadata       ContentMetadata `json:"metadata"`
	Error          string          `json:"error,omitempty"`
}

type Solution struct {
	Given       string   `json:"given"`
	ToFind      string   `json:"toFind"`
	Approach    string   `json:"approach"`
	Steps       []string `json:"steps"`
	FinalAnswer string   `json:"finalAnswer"`
	Explanation string   `json:"explanation"`
}

type SolvedQuestion struct {
	QuestionID       string            `json:"questionId"`
	Solution         Solution          `json:"solution"`
	SubPartSolutions map[string]string `json:"subPartSolutions,omitempty"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

type QuizPayload struct {
	Questions []QuizQuestion `json:"questions"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type FlashcardPayload struct {
	Flashcards []Flashcard `json:"flashcards"`
}
