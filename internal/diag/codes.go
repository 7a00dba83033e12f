package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexBadEscape          Code = 1004

	// Синтаксические
	SynInfo            Code = 2000
	SynUnexpectedToken Code = 2001
	SynUnclosedParen   Code = 2002
	SynExpectValue     Code = 2003
	SynEmptyHeading    Code = 2004

	// Семантические
	SemInfo            Code = 3000
	SemUnknownFunction Code = 3001
	SemBadArgument     Code = 3002
	SemMissingArgument Code = 3003
	SemUnknownFont     Code = 3004
	SemCyclicInclude   Code = 3005
	SemBadImage        Code = 3006

	// Ввод-вывод
	IOInfo          Code = 4000
	IOLoadFileError Code = 4001
	IONotSource     Code = 4002
	IOAccessDenied  Code = 4003
	IOPackage       Code = 4004
	IOCancelled     Code = 4005
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	LexInfo:               "Lexical information",
	LexUnknownChar:        "Unexpected character",
	LexUnterminatedString: "Unterminated string",
	LexBadNumber:          "Malformed number or length",
	LexBadEscape:          "Unknown escape sequence",
	SynInfo:               "Syntax information",
	SynUnexpectedToken:    "Unexpected token",
	SynUnclosedParen:      "Unclosed argument list",
	SynExpectValue:        "Expected a value",
	SynEmptyHeading:       "Empty heading",
	SemInfo:               "Semantic information",
	SemUnknownFunction:    "Unknown function",
	SemBadArgument:        "Invalid argument",
	SemMissingArgument:    "Missing argument",
	SemUnknownFont:        "Unknown font family",
	SemCyclicInclude:      "Cyclic include",
	SemBadImage:           "Image could not be decoded",
	IOInfo:                "I/O information",
	IOLoadFileError:       "File could not be loaded",
	IONotSource:           "File is not valid UTF-8",
	IOAccessDenied:        "Access denied",
	IOPackage:             "Package not found",
	IOCancelled:           "Compilation cancelled",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
