package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// commandContext derives a context from the command context, which is
// canceled on SIGINT and SIGTERM. A positive d adds a deadline.
func commandContext(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, d)
}
