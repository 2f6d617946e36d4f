package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/duckmesh/duckprompt/internal/dataset"
	"github.com/duckmesh/duckprompt/internal/nl2sql"
	"github.com/duckmesh/duckprompt/internal/observability"
	"github.com/duckmesh/duckprompt/internal/query"
	"github.com/duckmesh/duckprompt/internal/render"
	"github.com/duckmesh/duckprompt/internal/session"
)

const (
	DescriptionSuccess = "Query executed successfully."
	DescriptionEmpty   = "No data returned from this query."

	defaultSnapshotRows = 20
)

// QueryOutcome is what a caller gets back for one request. Query is nil when
// the pipeline failed before a query was generated.
type QueryOutcome struct {
	Query       *string `json:"query"`
	Description string  `json:"resultDescription"`
	Result      any     `json:"result"`
}

type Options struct {
	DatasetID    string
	Engine       query.Engine
	Generator    nl2sql.Generator
	Registry     dataset.Registry
	MaxTurns     int
	SnapshotRows int
	Mode         render.Mode
	Logger       *slog.Logger
}

// Session is one conversation over one dataset. History carries the previous
// successful turns into each new prompt and is dropped when the dataset's file
// or schema changes between calls. A Session is not safe for concurrent use.
type Session struct {
	datasetID    string
	dataset      dataset.Metadata
	bound        bool
	engine       query.Engine
	generator    nl2sql.Generator
	registry     dataset.Registry
	history      *session.History
	snapshotRows int
	mode         render.Mode
	logger       *slog.Logger
}

func NewSession(opts Options) (*Session, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("query engine is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("query generator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	snapshotRows := opts.SnapshotRows
	if snapshotRows <= 0 {
		snapshotRows = defaultSnapshotRows
	}
	mode := opts.Mode
	if mode == "" {
		mode = render.ModeRecords
	}
	return &Session{
		datasetID:    opts.DatasetID,
		engine:       opts.Engine,
		generator:    opts.Generator,
		registry:     opts.Registry,
		history:      session.NewHistory(opts.MaxTurns),
		snapshotRows: snapshotRows,
		mode:         mode,
		logger:       logger.With(slog.String("dataset_id", opts.DatasetID)),
	}, nil
}

func (s *Session) DatasetID() string {
	return s.datasetID
}

func (s *Session) History() *session.History {
	return s.history
}

// Ask runs one natural language request against metadata, the dataset as the
// registry describes it right now. Failures never escape as errors; they are
// reported in the outcome description.
func (s *Session) Ask(ctx context.Context, metadata dataset.Metadata, request string) (outcome QueryOutcome) {
	var generated *string
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("query pipeline panicked", slog.Any("panic", recovered))
			outcome = QueryOutcome{
				Query:       generated,
				Description: fmt.Sprintf("An unexpected error occurred: %v. Please review the prompt or try again.", recovered),
			}
		}
	}()

	metadata, err := s.ensureColumns(ctx, metadata)
	if err != nil {
		return s.processingFailure(err)
	}
	s.bind(metadata)

	prompt := nl2sql.BuildPrompt(nl2sql.PromptInput{
		Request:         request,
		Columns:         dataset.Descriptors(s.dataset.Columns),
		PreviousQueries: s.history.Queries(),
		PreviousResults: s.history.Snapshots(),
		Nested:          s.dataset.IsNested(),
		NestedColumn:    s.dataset.PathNavigationColumn(),
	})

	start := time.Now()
	raw, err := s.generator.GenerateQuery(ctx, prompt)
	observability.ObserveGeneration(string(s.generator.Provider()), err != nil, time.Since(start))
	if err != nil {
		return s.processingFailure(fmt.Errorf("generate query: %w", err))
	}
	s.logger.Debug("generated query", slog.String("raw", raw))

	sqlText := nl2sql.Sanitize(raw)
	generated = stringPtr(sqlText)
	s.logger.Info("executing query", slog.String("sql", sqlText))
	return s.execute(ctx, sqlText)
}

func (s *Session) execute(ctx context.Context, sqlText string) QueryOutcome {
	result := s.engine.Execute(ctx, query.Request{SQL: sqlText, Dataset: s.dataset})
	observability.ObserveExecution(string(result.Kind), string(result.ErrorKind), result.Duration)

	switch result.Kind {
	case query.OutcomeSuccess:
		s.history.Append(session.Turn{
			Query:    sqlText,
			Snapshot: render.Table(result.Result.Head(s.snapshotRows)),
		})
		return QueryOutcome{
			Query:       stringPtr(sqlText),
			Description: DescriptionSuccess,
			Result:      render.Result(s.mode, result.Result),
		}
	case query.OutcomeEmpty:
		s.logger.Info("query returned no rows")
		return QueryOutcome{Query: stringPtr(sqlText), Description: DescriptionEmpty}
	default:
		s.logger.Warn("query failed", slog.String("error_kind", string(result.ErrorKind)), slog.String("message", result.Message))
		return QueryOutcome{Query: stringPtr(sqlText), Description: result.Message}
	}
}

// bind points the session at metadata. Turns recorded against another file or
// another column list no longer describe the data and are cleared.
func (s *Session) bind(metadata dataset.Metadata) {
	if s.bound && !sameSchema(s.dataset, metadata) {
		s.logger.Info("dataset changed, clearing history",
			slog.String("file_path", metadata.FilePath),
			slog.Int("turns", s.history.Len()),
		)
		s.history.Reset()
	}
	s.dataset = metadata
	s.bound = true
}

func sameSchema(a, b dataset.Metadata) bool {
	return a.FilePath == b.FilePath && slices.Equal(a.Columns, b.Columns)
}

// ensureColumns introspects the dataset when its metadata arrived without
// columns and writes the result back to the registry.
func (s *Session) ensureColumns(ctx context.Context, metadata dataset.Metadata) (dataset.Metadata, error) {
	if len(metadata.Columns) > 0 {
		return metadata, nil
	}
	columns, err := s.engine.Introspect(ctx, metadata.FilePath)
	if err != nil {
		observability.IncrementIntrospectionFailure()
		return metadata, err
	}
	metadata.Columns = columns
	if s.registry != nil && s.datasetID != "" {
		if err := s.registry.Set(ctx, s.datasetID, metadata); err != nil {
			s.logger.Warn("persist introspected columns failed", slog.Any("error", err))
		}
	}
	return metadata, nil
}

func (s *Session) processingFailure(err error) QueryOutcome {
	description := fmt.Sprintf("Error processing query: %v", err)
	s.logger.Error("query processing failed", slog.Any("error", err))
	return QueryOutcome{Description: description}
}

func stringPtr(value string) *string {
	return &value
}
