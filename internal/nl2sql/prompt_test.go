package nl2sql

import (
	"strings"
	"testing"
)

func TestBuildPromptEmbedsColumnsAndGuidelines(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Request: "show rows where score > 90",
		Columns: []string{"id::BIGINT", "name::VARCHAR", "score::BIGINT"},
	})
	for _, snippet := range []string{
		"table named 'data'",
		"id::BIGINT, name::VARCHAR, score::BIGINT",
		"'show rows where score > 90'",
		"Interpret User Intent Flexibly",
		"Prioritize Semantic Matching over Exact String Matching",
		"Do not use SELECT *",
		"General SQL Rules:",
		"Return only the SQL query.",
	} {
		if !strings.Contains(prompt, snippet) {
			t.Fatalf("prompt missing %q:\n%s", snippet, prompt)
		}
	}
	if strings.Contains(prompt, "Previous Queries:") || strings.Contains(prompt, "Previous Results:") {
		t.Fatal("prompt should omit empty history blocks")
	}
}

func TestBuildPromptAppendsHistoryForTabularData(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Request:         "only the names",
		Columns:         []string{"name::VARCHAR"},
		PreviousQueries: []string{"SELECT * FROM data WHERE score > 90"},
		PreviousResults: []string{"name\nada\n"},
	})
	queries := strings.Index(prompt, "Previous Queries:\n1. SELECT * FROM data WHERE score > 90")
	results := strings.Index(prompt, "Previous Results:\n1. name\nada")
	output := strings.Index(prompt, "Return only the SQL query.")
	if queries < 0 || results < 0 {
		t.Fatalf("history blocks missing:\n%s", prompt)
	}
	if !(queries < results && results < output) {
		t.Fatalf("unexpected block order: queries=%d results=%d output=%d", queries, results, output)
	}
}

func TestBuildPromptNestedRules(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Request:         "list table names",
		Columns:         []string{"id::BIGINT", "payload::STRUCT(name VARCHAR)"},
		Nested:          true,
		NestedColumn:    "payload",
		PreviousQueries: []string{"SELECT 1"},
	})
	for _, snippet := range []string{"->>", "The column named payload", "unnest", "Return only the SQL query."} {
		if !strings.Contains(prompt, snippet) {
			t.Fatalf("nested prompt missing %q:\n%s", snippet, prompt)
		}
	}
	if strings.Contains(prompt, "General SQL Rules:") || strings.Contains(prompt, "Previous Queries:") {
		t.Fatal("nested prompt should not carry relational rules or history")
	}
}

func TestBuildPromptDefaultsNestedColumn(t *testing.T) {
	prompt := BuildPrompt(PromptInput{Request: "x", Columns: []string{"tables::JSON"}, Nested: true})
	if !strings.Contains(prompt, "The column named tables") {
		t.Fatalf("prompt = %s", prompt)
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	input := PromptInput{Request: "top 5", Columns: []string{"a::INTEGER"}, PreviousResults: []string{"a\n1"}}
	if BuildPrompt(input) != BuildPrompt(input) {
		t.Fatal("BuildPrompt() should be deterministic")
	}
}
