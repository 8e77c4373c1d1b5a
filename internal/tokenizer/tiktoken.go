package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
)

// errNoEncoding reports a counter constructed without an encoding.
var errNoEncoding = errors.New("token counter has no encoding")

// tiktokenCounter estimates token counts with a concrete tiktoken encoding.
type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// Name identifies the model or encoding behind the estimate, as shown in the
// snapshot header.
func (counter tiktokenCounter) Name() string {
	return counter.name
}

// CountString encodes input and returns the number of tokens produced.
func (counter tiktokenCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errNoEncoding
	}
	tokenIDs := counter.encoding.Encode(input, nil, nil)
	return len(tokenIDs), nil
}
