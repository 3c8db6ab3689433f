package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// MarshalContext serializes a Context for a script's stdin. Context contains
// only plain strings, so marshalling cannot fail.
func MarshalContext(ctx Context) []byte {
	data, _ := json.Marshal(ctx)
	return data
}

// ParseContext reads the JSON context a hook script receives on stdin.
// Empty input yields a zero Context, so scripts invoked by hand still work.
func ParseContext(r io.Reader) (Context, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Context{}, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return Context{}, nil
	}
	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		return Context{}, fmt.Errorf("parsing stdin JSON: %w", err)
	}
	return ctx, nil
}
