package harness

import (
	"context"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/owl"
)

// Inline runs requests in the current process.
type Inline struct {
	// Options are applied after the ones derived from the request.
	Options []owl.Option
}

var _ Isolation = Inline{}

func (i Inline) Execute(ctx context.Context, req Request, hook events.Hook) (api.RunResult, error) {
	o, closeDB, err := Prepare(req, i.Options...)
	if err != nil {
		return api.RunResult{}, err
	}
	defer func() { _ = closeDB() }()

	return o.AskWithID(ctx, req.RunID, req.Question, hook), nil
}
