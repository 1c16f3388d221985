package normalizer

import (
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/utils"
)

const mimeTextPlain = "text/plain"

type normalizerService struct{}

// NewNormalizerService returns a pure normalizer: the same raw message always
// yields an identical record.
func NewNormalizerService() interfaces.NormalizerService {
	return &normalizerService{}
}

func (s *normalizerService) Normalize(raw dto.RawMessage) (*dto.NormalizedEmail, error) {
	switch {
	case raw.Gmail != nil:
		return normalizeGmail(raw)
	case len(raw.MIME) > 0:
		return normalizeMIME(raw)
	default:
		return nil, mderrors.New(mderrors.ErrValidation, "raw message "+raw.ID+" has no content")
	}
}

// cleanSender strips display names and angle brackets. Syntactically valid
// addresses are returned in their cleaned form.
func cleanSender(from string) string {
	address := utils.ExtractEmailAddress(from)
	if address == "" {
		return ""
	}
	validation := mailvalidate.ValidateEmailSyntax(address)
	if validation.IsValid && validation.CleanEmail != "" {
		return validation.CleanEmail
	}
	return address
}

func isPlainText(mimeType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	return mediaType == mimeTextPlain
}
