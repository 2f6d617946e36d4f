package nl2sql

import (
	"fmt"
	"strings"

	"github.com/duckmesh/duckprompt/internal/dataset"
	"github.com/duckmesh/duckprompt/internal/query"
)

// PromptInput is everything BuildPrompt needs for one turn. History is only
// used for tabular datasets.
type PromptInput struct {
	Request         string
	Columns         []string
	PreviousQueries []string
	PreviousResults []string
	Nested          bool
	NestedColumn    string
}

const promptIntro = `You are a highly intelligent and robust AI assistant specializing in translating natural language requests into SQL for DuckDB.
The user is querying a table named '%s' with the following columns and their types: %s.

General Guidelines for Robust Query Generation:

1. Interpret User Intent Flexibly: understand the underlying intent of the request even when the phrasing does not line up with the schema or the stored values. Users may use synonyms, paraphrases, abbreviations or a different level of detail.

2. Handle Variations in Data Values: requests may use different terminology than the values stored in the table. For example "high sales" may refer to a column named "sales_amount", and "Electronics" may refer to a stored category "Electronic Products".

3. Prioritize Semantic Matching over Exact String Matching: when comparing user supplied values, prefer case-insensitive and pattern based comparisons (ILIKE, LIKE, lower()) over strict equality where that matches the intent.

4. Assume Reasonable Defaults: if the request is slightly ambiguous, make sensible assumptions based on the data and generate the most likely query.

5. Focus on Data Retrieval, Not Keyword Matching: generate SQL that retrieves the data the user is interested in rather than translating keywords literally.

6. Error Tolerance: if part of the request is unclear, generate a query that still returns some relevant data instead of failing outright.

7. Select only the columns asked for in the request. Do not use SELECT * unless the request asks for all data.

Given the user request: '%s', generate a SQL query to retrieve the requested data from the table '%s'.
`

const nestedRules = `
The data inside the table is in JSON format.
Rules:
1. To read a key inside a JSON object, use the ->> operator with the key name.
2. For nested JSON objects, chain ->> operators to reach the nested key.
3. The column named %s contains the JSON data.
4. If the column %s holds an array of JSON objects, use unnest before accessing keys.
`

const relationalRules = `
General SQL Rules:
1. Select only the data asked in the request. Do not return all columns unless explicitly requested.
2. Use the exact column names listed above and cast values to the right data types where required.
3. The query must follow standard SQL syntax rules for DuckDB.
`

const outputRules = `
Return only the SQL query. Do not include any other text or explanation. Do not add markdown or code fences.

Output:
SQL Query:
`

// BuildPrompt renders the instruction text sent to the language model. It is
// deterministic for a given input.
func BuildPrompt(input PromptInput) string {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, promptIntro,
		query.TableName,
		strings.Join(input.Columns, ", "),
		strings.TrimSpace(input.Request),
		query.TableName,
	)

	if input.Nested {
		column := strings.TrimSpace(input.NestedColumn)
		if column == "" {
			column = dataset.DefaultNestedColumn
		}
		fmt.Fprintf(&prompt, nestedRules, column, column)
	} else {
		prompt.WriteString(relationalRules)
		writeHistory(&prompt, "Previous Queries:", input.PreviousQueries)
		writeHistory(&prompt, "Previous Results:", input.PreviousResults)
	}

	prompt.WriteString(outputRules)
	return prompt.String()
}

func writeHistory(prompt *strings.Builder, title string, entries []string) {
	if len(entries) == 0 {
		return
	}
	prompt.WriteString("\n")
	prompt.WriteString(title)
	prompt.WriteString("\n")
	for i, entry := range entries {
		fmt.Fprintf(prompt, "%d. %s\n", i+1, strings.TrimRight(entry, "\n"))
	}
}
