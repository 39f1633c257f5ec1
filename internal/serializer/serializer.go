// Package serializer turns a SessionState into the opaque blob the
// Checkpoint Store persists, and back. Encoding never
// raises: a value it cannot represent cleanly is progressively
// degraded (sanitized, then projected through mapstructure, then
// stringified) rather than failing the whole checkpoint write.
package serializer

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"surveyengine/internal/domain/models"
)

// Encode serializes state to its wire form. It never returns an error
// for "value I can't represent" — only for conditions outside the
// sanitize/project/stringify degradation ladder (e.g. ctx already
// failed upstream callers chose to bail on), which in practice today
// is none; the error return exists so the interface can grow without
// breaking callers.
func Encode(state *models.SessionState) ([]byte, error) {
	sanitized := sanitizeState(state)
	blob, err := json.Marshal(sanitized)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return blob, nil
}

// Decode reverses Encode. A malformed blob (the checkpoint store never
// writes one, but a hand-rolled migration or a corrupted record might)
// is reported as an error — there is no degrade-and-continue path on
// the read side.
func Decode(blob []byte) (*models.SessionState, error) {
	var state models.SessionState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

// sanitizeState copies state with every Message's Attrs run through
// sanitizeValue, so a caller that attached something non-serializable
// to a message (a callback, a channel) doesn't blow up the checkpoint
// write the node transition depends on.
func sanitizeState(state *models.SessionState) *models.SessionState {
	out := *state
	out.Messages = sanitizeMessages(state.Messages)
	out.CurrentStepMessages = sanitizeMessages(state.CurrentStepMessages)
	return &out
}

func sanitizeMessages(msgs []models.Message) []models.Message {
	if msgs == nil {
		return nil
	}
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.Attrs != nil {
			out[i].Attrs = sanitizeAttrs(m.Attrs)
		}
	}
	return out
}

func sanitizeAttrs(attrs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = sanitizeValue(v)
	}
	return out
}

// sanitizeValue degrades v through three stages so Encode never fails:
//  1. drop the value outright if its reflect.Kind can never marshal
//     (Func, Chan, UnsafePointer); nested map[string]interface{} and
//     []interface{} values are walked element by element;
//  2. if it already marshals cleanly via encoding/json, keep it as-is;
//  3. otherwise project it through mapstructure into a plain map, and
//     if that fails or the map still does not marshal, fall back to
//     its fmt.Sprintf("%v") form.
func sanitizeValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil
	}

	switch typed := v.(type) {
	case map[string]interface{}:
		return sanitizeAttrs(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, e := range typed {
			out[i] = sanitizeValue(e)
		}
		return out
	}

	if _, err := json.Marshal(v); err == nil {
		return v
	}

	var projected map[string]interface{}
	if err := mapstructure.Decode(v, &projected); err == nil {
		if _, err := json.Marshal(projected); err == nil {
			return projected
		}
	}

	return fmt.Sprintf("%v", v)
}
