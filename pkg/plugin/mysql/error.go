package mysql

import (
	"fmt"

	"github.com/antlr4-go/antlr/v4"
)

// SyntaxError is a lexer or parser rejection with position information.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

// Error returns the error message.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d:%d: %s", e.Line, e.Column, e.Message)
}

// parseErrorListener records the first syntax error reported by ANTLR.
type parseErrorListener struct {
	*antlr.DefaultErrorListener
	statement string
	err       *SyntaxError
}

// SyntaxError implements antlr.ErrorListener.
func (l *parseErrorListener) SyntaxError(
	_ antlr.Recognizer,
	_ any,
	line, column int,
	message string,
	_ antlr.RecognitionException,
) {
	if l.err != nil {
		return
	}
	l.err = &SyntaxError{
		Line:    line,
		Column:  column,
		Message: message,
	}
}
