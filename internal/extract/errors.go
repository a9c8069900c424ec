package extract

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file type, use PDF or plain text")
	ErrExtraction        = errors.New("text extraction failed")
	ErrTooLarge          = errors.New("file exceeds maximum upload size")
)
