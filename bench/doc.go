// Package bench runs benchmark plans: every question of a plan is asked n
// times per model through a harness.Runner, each answer is scored against
// the reference with METEOR and keyword matching, and the results are
// written to experiments/ with one trace file per run under traces/.
package bench
