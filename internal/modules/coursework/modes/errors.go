package modes

import (
	"errors"
	"fmt"

	types "github.com/yungbote/coursework-backend/internal/domain"
)

var (
	ErrContentTooShort   = errors.New("assignment content is too short to generate from")
	ErrQuizCountRequired = errors.New("quiz requires a question count of at least 1")
	ErrUnknownMode       = errors.New("unknown study mode")
)

// GenerationError means the model replied but the reply failed validation,
// or the call itself failed.
type GenerationError struct {
	Mode   types.Mode
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate %s: %s: %v", e.Mode, e.Reason, e.Err)
	}
	return fmt.Sprintf("generate %s: %s", e.Mode, e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }
