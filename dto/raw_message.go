package dto

import (
	"google.golang.org/api/gmail/v1"

	"github.com/customeros/maildigest/internal/enum"
)

// RawMessage is a message as delivered by a source. Exactly one of MIME and
// Gmail is set.
type RawMessage struct {
	ID     string
	Source enum.SourceType
	MIME   []byte
	Gmail  *gmail.Message
}
