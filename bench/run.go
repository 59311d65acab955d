package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/harness"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/fogfish/opts"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	experimentsDir  = "experiments"
	tracesDir       = "traces"
	traceTimeLayout = "2006-01-02_15:04:05.000000"
)

// Runner executes harness requests. *harness.Runner implements it.
type Runner interface {
	Run(ctx context.Context, req harness.Request, timeout time.Duration) api.RunResult
	RunAll(ctx context.Context, reqs []harness.Request, timeout time.Duration, concurrency int) []api.RunResult
}

// QuestionResult holds every try of one question, index aligned.
type QuestionResult struct {
	QA
	Scores         []float64         `json:"scores"`
	KeywordMatches []int             `json:"keyword_matches"`
	Answers        []*string         `json:"answers"`
	Errors         []*string         `json:"errors"`
	Reasons        []api.Termination `json:"reasons"`
	Tracefiles     []string          `json:"tracefiles"`
	RunIDs         []uuid.UUID       `json:"run_ids"`
}

func (q *QuestionResult) record(res api.RunResult, tracefile string) {
	var answer *string
	if res.FinalAnswer != nil {
		a := *res.FinalAnswer
		answer = &a
	}
	var errText *string
	if res.Err != nil {
		e := res.Err.Error()
		errText = &e
	}
	candidate := res.Answer()

	q.Scores = append(q.Scores, Meteor(q.CorrectAnswer, candidate))
	q.KeywordMatches = append(q.KeywordMatches, KeywordMatches(candidate, q.CorrectKeywords))
	q.Answers = append(q.Answers, answer)
	q.Errors = append(q.Errors, errText)
	q.Reasons = append(q.Reasons, res.Reason)
	q.Tracefiles = append(q.Tracefiles, tracefile)
	q.RunIDs = append(q.RunIDs, res.RunID)
}

// Experiment is the outcome of a plan for one model.
type Experiment struct {
	ModelName       string           `json:"model_name"`
	ModelPath       string           `json:"model_path"`
	Prompt          prompt.Template  `json:"prompt,omitempty"`
	QuestionResults []QuestionResult `json:"question_results"`

	// Output is the file the experiment was written to.
	Output string `json:"-"`
}

// MeanScore averages the METEOR score of every try.
func (e Experiment) MeanScore() float64 {
	var sum float64
	var n int
	for _, q := range e.QuestionResults {
		for _, s := range q.Scores {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Answered counts the tries that produced a final answer.
func (e Experiment) Answered() (answered, total int) {
	for _, q := range e.QuestionResults {
		for _, a := range q.Answers {
			total++
			if a != nil {
				answered++
			}
		}
	}
	return answered, total
}

type config struct {
	outputDir   string
	database    string
	dictionary  string
	actions     []string
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

type Option = opts.Option[config]

var (
	// WithOutputDir sets the directory holding experiments/ and traces/.
	WithOutputDir = opts.ForName[config, string]("outputDir")
	// WithDatabase sets the SQLite file every question is asked against.
	WithDatabase = opts.ForName[config, string]("database")
	// WithDictionary sets the data dictionary used by the help action.
	WithDictionary = opts.ForName[config, string]("dictionary")
	// WithActions restricts the actions offered to the model.
	WithActions = opts.ForName[config, []string]("actions")
	// WithConcurrency runs the tries of a question in parallel. Cooldowns
	// are skipped when it is above one.
	WithConcurrency = opts.ForName[config, int]("concurrency")
	// WithClock replaces time.Now for file names.
	WithClock  = opts.ForName[config, func() time.Time]("now")
	WithLogger = opts.ForName[config, *slog.Logger]("logger")
)

// Run executes the plan model by model. Experiment files are rewritten
// after every try so an interrupted run keeps what it measured.
func Run(ctx context.Context, plan *Plan, runner Runner, options ...Option) ([]Experiment, error) {
	cfg := config{outputDir: ".", concurrency: 1, now: time.Now}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	cfg.logger = cfg.logger.With(slogx.LoggerName("sqlowl.bench"))
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.database == "" {
		return nil, errors.New("database is required")
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	for _, dir := range []string{experimentsDir, tracesDir} {
		if err := os.MkdirAll(filepath.Join(cfg.outputDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	today := cfg.now().Format(time.DateOnly)
	experiments := make([]Experiment, 0, len(plan.Models))
	for _, model := range plan.Models {
		exp, err := runModel(ctx, cfg, plan, runner, model, today)
		experiments = append(experiments, exp)
		if err != nil {
			return experiments, err
		}
	}
	return experiments, nil
}

func runModel(ctx context.Context, cfg config, plan *Plan, runner Runner, model ModelPlan, today string) (Experiment, error) {
	name := ModelName(model.Path)
	exp := Experiment{
		ModelName: name,
		ModelPath: model.Path,
		Prompt:    plan.PromptData,
		Output:    filepath.Join(cfg.outputDir, experimentsDir, fmt.Sprintf("%s_%s_%s.json", plan.ExperimentName, today, name)),
	}
	logger := cfg.logger.With(slogx.Model(model.Path))
	encoding, err := model.Encoding()
	if err != nil {
		return exp, err
	}
	timeout := plan.timeout(model)
	cooldown := plan.cooldown(model)

	for _, qa := range plan.QA {
		exp.QuestionResults = append(exp.QuestionResults, QuestionResult{QA: qa})
		qr := &exp.QuestionResults[len(exp.QuestionResults)-1]
		logger.InfoContext(ctx, "beginning question", slog.String("question", qa.Question), slog.Int("tries", plan.NTries))

		reqs := make([]harness.Request, plan.NTries)
		for i := range reqs {
			reqs[i] = harness.Request{
				RunID:       uuidx.New(),
				Model:       model.Path,
				Question:    qa.Question,
				Encoding:    encoding,
				Template:    plan.PromptData,
				Exemplars:   plan.AvailableInjectPrompts,
				Inject:      plan.Inject,
				Database:    cfg.database,
				Dictionary:  cfg.dictionary,
				Actions:     cfg.actions,
				Temperature: plan.Temperature,
				TopP:        plan.TopP,
				Timeout:     timeout,
			}
		}

		if cfg.concurrency > 1 {
			for _, res := range runner.RunAll(ctx, reqs, timeout, cfg.concurrency) {
				if err := recordTry(cfg, qr, name, res, logger); err != nil {
					return exp, err
				}
			}
			if err := save(exp); err != nil {
				return exp, err
			}
		} else {
			for i, req := range reqs {
				res := runner.Run(ctx, req, timeout)
				if err := recordTry(cfg, qr, name, res, logger); err != nil {
					return exp, err
				}
				if err := save(exp); err != nil {
					return exp, err
				}
				if cooldown > 0 && i < len(reqs)-1 {
					logger.InfoContext(ctx, "cooling down", slog.Duration("cooldown", cooldown))
					if err := sleep(ctx, cooldown); err != nil {
						return exp, err
					}
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return exp, err
		}
	}
	return exp, save(exp)
}

func recordTry(cfg config, qr *QuestionResult, model string, res api.RunResult, logger *slog.Logger) error {
	tracefile := filepath.Join(cfg.outputDir, tracesDir,
		fmt.Sprintf("experiment_%s_%s_%s.log", model, cfg.now().Format(traceTimeLayout), uuidx.Short(res.RunID)))
	if err := os.WriteFile(tracefile, []byte(res.Trace.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	qr.record(res, tracefile)

	attrs := []any{
		slogx.RunID(res.RunID),
		slog.String("reason", res.Reason.String()),
		slog.Float64("score", qr.Scores[len(qr.Scores)-1]),
		slog.Int("keyword_matches", qr.KeywordMatches[len(qr.KeywordMatches)-1]),
	}
	if res.Err != nil {
		attrs = append(attrs, slogx.Error(res.Err))
	}
	logger.Info("try finished", attrs...)
	return nil
}

func save(exp Experiment) error {
	b, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode experiment: %w", err)
	}
	if err := os.WriteFile(exp.Output, b, 0o644); err != nil {
		return fmt.Errorf("failed to write experiment: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
