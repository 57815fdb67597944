// ABOUTME: Base tools available on every server: echo, add, now.
// ABOUTME: Public, no permissions required.

package builtins

import (
	"context"
	"fmt"
	"time"

	"github.com/2389/spellbook/internal/catalog"
)

// EchoInput is the input for the echo tool.
type EchoInput struct {
	Text string `json:"text"`
}

// AddInput is the input for the add tool.
type AddInput struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NowOutput is the output of the now tool.
type NowOutput struct {
	RFC3339 string `json:"rfc3339"`
	Unix    int64  `json:"unix"`
}

// RegisterBase registers the public base tools on the catalog.
func RegisterBase(c *catalog.Catalog) error {
	if _, err := catalog.Register(c, "echo", "Return the given text unchanged.",
		func(ctx context.Context, in EchoInput) (string, error) {
			return in.Text, nil
		}); err != nil {
		return fmt.Errorf("registering echo: %w", err)
	}

	if _, err := catalog.Register(c, "add", "Add two integers.",
		func(ctx context.Context, in AddInput) (int, error) {
			return in.X + in.Y, nil
		}); err != nil {
		return fmt.Errorf("registering add: %w", err)
	}

	if _, err := catalog.Register(c, "now", "Report the current server time.",
		func(ctx context.Context, in struct{}) (NowOutput, error) {
			t := time.Now().UTC()
			return NowOutput{RFC3339: t.Format(time.RFC3339), Unix: t.Unix()}, nil
		}); err != nil {
		return fmt.Errorf("registering now: %w", err)
	}

	return nil
}
