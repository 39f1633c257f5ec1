package checkpoint

import "github.com/google/uuid"

// newCheckpointID generates the opaque checkpoint_id used across both
// Store implementations.
func newCheckpointID() string {
	return uuid.NewString()
}
