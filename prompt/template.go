package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casualjim/sqlowl/messages"
)

// QuestionPlaceholder is replaced by the trimmed question when a template is rendered.
const QuestionPlaceholder = "{question}"

var (
	ErrEmptyTemplate   = errors.New("prompt: template has no turns")
	ErrNoQuestionTurn  = errors.New("prompt: the last template turn must be a user turn")
	ErrInvalidTemplate = errors.New("prompt: invalid template")
)

// TurnTemplate is a template turn. InjectBefore marks the turn where worked
// examples selected by similarity are spliced in.
type TurnTemplate struct {
	Role         messages.Role `json:"role" yaml:"role"`
	Content      string        `json:"content" yaml:"content"`
	InjectBefore bool          `json:"inject_before,omitempty" yaml:"inject_before,omitempty"`
}

// Template is an ordered list of turns. The last turn is the question turn.
type Template []TurnTemplate

// Validate checks that the template can be rendered with every encoding.
func (t Template) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTemplate
	}
	var err error
	for i, turn := range t {
		if !turn.Role.Valid() {
			err = errors.Join(err, fmt.Errorf("%w: turn %d has invalid role %q", ErrInvalidTemplate, i, turn.Role))
		}
	}
	if t[len(t)-1].Role != messages.RoleUser {
		err = errors.Join(err, ErrNoQuestionTurn)
	}
	return err
}

// InjectPoint returns the index of the first turn flagged InjectBefore, or -1.
func (t Template) InjectPoint() int {
	for i, turn := range t {
		if turn.InjectBefore {
			return i
		}
	}
	return -1
}

// Turns converts the template into plain turns without resolving placeholders.
func (t Template) Turns() []messages.Turn {
	turns := make([]messages.Turn, len(t))
	for i, turn := range t {
		turns[i] = messages.Turn{Role: turn.Role, Content: turn.Content}
	}
	return turns
}

func resolve(content, question string) string {
	return strings.ReplaceAll(content, QuestionPlaceholder, question)
}

// DefaultTools lists the action names the default template advertises.
var DefaultTools = []string{"tables", "schema", "help", "sql-query"}

const defaultInstructions = `Answer the following questions as best you can. You have access to the following tools:

tables: useful for getting the names of tables available. no input.
schema: useful for looking at the schema of a database. input 1: table name.
help: get helpful information describing a table or a table's column. useful for understanding the relationship between tables and what columns mean. input 1: table name. (optional) input 2: column name.
sql-query: useful for analyzing data and getting the top 5 results of a query. input 1: a valid sqlite sql query.

Use the following format:

  Question: the input question you must answer
  Thought: you should always think about what to do
  Action: the action to take, should be one of [tables, schema, help, sql-query]
  Action Input 1: the first input to the action.
  Observation: the result of the action
  ... (this Thought/Action/Action Input/Observation can repeat N times)
  Thought: I now know the final answer
  Final Answer: the final answer to the original input question

Action inputs are always wrapped in triple backticks. Here are some examples.`

// Default returns the built-in template for answering questions about a SQLite database.
func Default() Template {
	return Template{
		{Role: messages.RoleSystem, Content: defaultInstructions},
		{Role: messages.RoleUser, Content: "Question: What information do I have about users?", InjectBefore: true},
		{Role: messages.RoleAssistant, Content: "Thought: I should check to see if I have any users tables.\n" +
			"Action: tables\n" +
			"Observation: ```[\"jobs\", \"users\", \"games\", \"game_passes\"]```\n" +
			"Thought: I should inspect the columns on the users table.\n" +
			"Action: schema\n" +
			"Action Input 1: ```users```\n" +
			"Observation: ```CREATE TABLE [users] ( [creatorUserId] INTEGER PRIMARY KEY, [isContactAllowed] INTEGER, [creatorDescription] TEXT, [isOpenToWork] INTEGER, [interestDescription] TEXT, [jobTypes] TEXT, [skillTypes] TEXT, [requiresAction] TEXT )```\n" +
			"Thought: I should see what ways the users table can be helpful by checking the help.\n" +
			"Action: help\n" +
			"Action Input 1: ```users```\n" +
			"Observation: users are individuals who are seeking work, have worked or are looking to hire people to work on games.\n" +
			"Thought: I have all of the information I need.\n" +
			"Final Answer: I have the following fields about users: \"creatorUserId\", \"isContactAllowed\", \"creatorDescription\", \"isOpenToWork\", \"interestDescription\", \"jobTypes\", \"skillTypes\", and \"requiresAction\"."},
		{Role: messages.RoleUser, Content: "Question: How many jobs have been offered?"},
		{Role: messages.RoleAssistant, Content: "Thought: I should look at which tables I have available.\n" +
			"Action: tables\n" +
			"Observation: ```[\"jobs\", \"users\", \"games\", \"game_passes\"]```\n" +
			"Thought: I should count the rows of the jobs table using SQLite SQL.\n" +
			"Action: sql-query\n" +
			"Action Input 1: ```select count(*) from jobs;```\n" +
			"Observation: ```[{\"count(*)\": 6753}]```\n" +
			"Thought: This query has given me the count of jobs in the table. I have a final answer.\n" +
			"Final Answer: There have been 6,753 total jobs offered according to the database."},
		{Role: messages.RoleUser, Content: "Question: What are the most common payment amounts that have been offered for jobs?"},
		{Role: messages.RoleAssistant, Content: "Thought: I should look at which tables I have available.\n" +
			"Action: tables\n" +
			"Observation: ```[\"jobs\", \"users\", \"games\", \"game_passes\"]```\n" +
			"Thought: I should use a SQL group by query to see the top jobs.paymentAmount values.\n" +
			"Action: sql-query\n" +
			"Action Input 1: ```select paymentAmount, count(paymentAmount) as n from jobs group by paymentAmount order by n desc limit 3;```\n" +
			"Observation: ```[{\"paymentAmount\": 0.0, \"n\": 713}, {\"paymentAmount\": 1.0, \"n\": 157}, {\"paymentAmount\": 2.0, \"n\": 22}]```\n" +
			"Thought: This query has given me the count of the top payment amounts in the jobs table. I have a final answer.\n" +
			"Final Answer: The top three payment amounts offered for jobs are 0.0 (713 jobs), 1.0 (157), and 2.0 (22 jobs)."},
		{Role: messages.RoleUser, Content: "Question: What kind of information shows up in the user description?"},
		{Role: messages.RoleAssistant, Content: "Thought: I should read the help for the description column in the users table.\n" +
			"Action: help\n" +
			"Action Input 1: ```users```\n" +
			"Action Input 2: ```creatorDescription```\n" +
			"Observation: The users table's creatorDescription column is a free-text field the user has supplied, describing themselves, their interests and work preferences.\n" +
			"Thought: I have some information about what appears in user descriptions.\n" +
			"Final Answer: Users sometimes put their interests, work preferences and demographic information in their description."},
		{Role: messages.RoleUser, Content: "Question: {question}"},
	}
}
