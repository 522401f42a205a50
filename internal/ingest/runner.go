package ingest

import (
	"context"

	"ztfalerts/pkg/utils/logger"

	"github.com/zeromicro/go-zero/core/threading"
	"go.uber.org/zap"
)

// Runner runs one Loop per configured topic, each on its own goroutine.
type Runner struct {
	loops []*Loop
}

func NewRunner(loops ...*Loop) *Runner {
	return &Runner{loops: loops}
}

// Run blocks until every loop has returned. Loops exit when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	group := threading.NewRoutineGroup()
	for _, loop := range r.loops {
		group.RunSafe(func() {
			if err := loop.Run(ctx); err != nil {
				logger.Error(ctx, "consumer exited", zap.String("topic", loop.Topic()), zap.Error(err))
			}
		})
	}
	group.Wait()
}
