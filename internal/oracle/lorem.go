package oracle

import (
	"context"
	"strings"

	loremgen "github.com/bozaro/golorem"

	"surveyengine/internal/domain/models"
)

// LoremOracle is a mock Oracle that answers with generated lorem ipsum
// text instead of calling a real model, so the engine is drivable
// without API credentials.
// It never errors and ignores ctx cancellation, same as the real
// boundary it stands in for is expected to respect ctx but is free not
// to for a mock.
type LoremOracle struct {
	generator *loremgen.Lorem
	minWords  int
	maxWords  int
}

// NewLoremOracle builds a mock Oracle whose replies are two to four
// sentences of [minWords, maxWords] words each.
func NewLoremOracle(minWords, maxWords int) *LoremOracle {
	return &LoremOracle{
		generator: loremgen.New(),
		minWords:  minWords,
		maxWords:  maxWords,
	}
}

// Invoke returns a generated paragraph standing in for the model's
// reply to the given transcript. The transcript itself is ignored —
// a mock has no comprehension to exercise.
func (o *LoremOracle) Invoke(ctx context.Context, messages []models.Message) (string, error) {
	var sb strings.Builder
	sentences := 2 + len(messages)%3
	for i := 0; i < sentences; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(o.generator.Sentence(o.minWords, o.maxWords))
	}
	return sb.String(), nil
}
