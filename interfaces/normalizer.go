package interfaces

import "github.com/customeros/maildigest/dto"

type NormalizerService interface {
	Normalize(raw dto.RawMessage) (*dto.NormalizedEmail, error)
}
