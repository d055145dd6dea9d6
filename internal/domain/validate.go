package domain

import "fmt"

// Validate checks that a wheel can be spun and that quiz segments resolve.
func (w Wheel) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidWheel)
	}
	if len(w.Segments) == 0 {
		return fmt.Errorf("%w: %s has no segments", ErrInvalidWheel, w.ID)
	}
	for i, seg := range w.Segments {
		if seg.Weight != nil && *seg.Weight < 0 {
			return fmt.Errorf("%w: %s segment %d has negative weight", ErrInvalidWheel, w.ID, i)
		}
		switch w.Variant {
		case VariantQuiz:
			if _, ok := w.Question(seg.QuestionID); !ok {
				return fmt.Errorf("%w: %s segment %d references unknown question %q", ErrInvalidWheel, w.ID, i, seg.QuestionID)
			}
		case VariantCategoryQuiz:
			if seg.Category == "" {
				return fmt.Errorf("%w: %s segment %d has no category", ErrInvalidWheel, w.ID, i)
			}
		case VariantPrize:
			if seg.Kind == KindPoints && seg.Points < 0 {
				return fmt.Errorf("%w: %s segment %d pays negative points", ErrInvalidWheel, w.ID, i)
			}
		default:
			return fmt.Errorf("%w: %s has unknown variant %q", ErrInvalidWheel, w.ID, w.Variant)
		}
	}
	return nil
}
