// Package oracle defines the single external collaborator the engine
// treats as an opaque model endpoint: invoke(messages) -> text.
// Everything about how that text gets turned into a streamed HTTP
// response lives in internal/engine, not here — an Oracle is a
// blocking call, nothing more.
package oracle

import (
	"context"

	"surveyengine/internal/domain/models"
)

// Oracle invokes the underlying model with a transcript and returns
// its complete reply. Implementations may take arbitrarily long; the
// ctx deadline (if any) is the caller's only control over that.
type Oracle interface {
	Invoke(ctx context.Context, messages []models.Message) (string, error)
}
