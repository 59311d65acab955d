package harness

import (
	"fmt"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/datastore"
	"github.com/casualjim/sqlowl/internal/executor"
	"github.com/casualjim/sqlowl/owl"
	"github.com/casualjim/sqlowl/prompt/exemplar"

	// registers the openai and local model kinds
	_ "github.com/casualjim/sqlowl/provider/openai"
)

// Prepare builds the owl that answers req. The returned close function
// releases the model handle and the database and must be called once the run
// is over.
func Prepare(req Request, extra ...owl.Option) (*owl.Owl, func() error, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid request: %w", err)
	}

	model, err := api.ModelFromSpec(req.Model)
	if err != nil {
		return nil, nil, err
	}
	ok := false
	defer func() {
		if !ok {
			api.ReleaseModel(model)
		}
	}()

	policy, err := executor.ParseEmptyPolicy(req.EmptyPolicy)
	if err != nil {
		return nil, nil, err
	}

	var dsOpts []datastore.Option
	if req.Dictionary != "" {
		dict, err := datastore.LoadDictionary(req.Dictionary)
		if err != nil {
			return nil, nil, err
		}
		dsOpts = append(dsOpts, datastore.WithDictionary(dict))
	}
	db, err := datastore.Open(req.Database, dsOpts...)
	if err != nil {
		return nil, nil, err
	}
	tools, err := datastore.Toolset(db, req.Actions...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	options := []owl.Option{
		owl.Name(model.Name()),
		owl.Model(model),
		owl.Tools(tools),
		owl.Encoding(req.encoding()),
		owl.OnEmpty(policy),
		owl.Sampling(req.Temperature, req.TopP),
	}
	if len(req.Template) > 0 {
		options = append(options, owl.Template(req.Template))
	}
	if req.Inject {
		options = append(options, owl.Exemplars(exemplar.NewLexical(), req.Exemplars))
	}
	if req.MaxAttempts > 0 {
		options = append(options, owl.MaxAttempts(req.MaxAttempts))
	}
	options = append(options, extra...)

	o, err := owl.New(options...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	ok = true
	return o, func() error {
		api.ReleaseModel(model)
		return db.Close()
	}, nil
}
