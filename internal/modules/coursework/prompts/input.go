package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	Title       string
	Description string
	// Combined extracted text, already capped by the caller.
	Content string

	// Pipeline stages
	ValidatedJSON string
	QuestionsJSON string
	SolutionsJSON string

	// Modes
	Count int

	// Chat
	HistoryText string
	Question    string

	// PDF transcription
	FileTitle  string
	PageNumber int
	PageCount  int
}
