package imusefile

import (
	"fmt"
)

type ParseError struct {
	Message string

	// Line is a 1-based line of the bank document (0 if unknown).
	Line int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (line=%d)", e.Message, e.Line)
}
