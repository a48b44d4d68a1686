package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altintasutku/library-management/internal/library"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "op-0001",
	}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "op-0001", resp.TraceID)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("NOT_FOUND", "book not found", map[string]any{"book_id": 7})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "book not found", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

type greeting string

func (g greeting) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "hello, %s\n", string(g))
	return err
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("Database ready: x.db"))
	assert.Equal(t, "Database ready: x.db\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success(greeting("alice")))
	assert.Equal(t, "hello, alice\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Error("VALIDATION", "title must not be empty", map[string]any{"field": "title"})
	require.NoError(t, err)
	assert.Equal(t, "Error [VALIDATION]: title must not be empty\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("VALIDATION", "title must not be empty", map[string]any{"field": "title"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("opening %s", "library.db")
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("opening %s", "library.db")
	assert.Equal(t, "opening library.db\n", errOut.String())
	assert.Empty(t, out.String(), "diagnostics must not corrupt JSON output")
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"validation", library.NewValidationError(library.FieldTitle, "title must not be empty"), "VALIDATION", ExitFailure},
		{"not found", library.NewNotFoundError(9), "NOT_FOUND", ExitFailure},
		{"already borrowed", library.NewAlreadyBorrowedError(1, "alice"), "ALREADY_BORROWED", ExitFailure},
		{"no active loan", library.NewNoActiveLoanError(1), "NO_ACTIVE_LOAN", ExitFailure},
		{"storage", library.NewStorageError("borrow: insert loan", errors.New("disk full")), "STORAGE", ExitCommandError},
		{"schema", library.NewSchemaError("create relations", errors.New("readonly")), "SCHEMA", ExitCommandError},
		{"untyped", errors.New("boom"), "STORAGE", ExitCommandError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail(tc.err)
			require.Error(t, err)
			assert.Equal(t, tc.wantExit, GetExitCode(err))
			assert.True(t, IsReported(err))
			assert.ErrorIs(t, err, tc.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestOutputFormatter_FailDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	_ = formatter.Fail(library.NewAlreadyBorrowedError(3, "alice"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "book is already borrowed by alice", resp.Error.Message)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, details["book_id"])
}

func TestExitError(t *testing.T) {
	inner := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "load configuration", inner)

	assert.Equal(t, "load configuration: no such file", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, IsReported(err))

	plain := NewExitError(ExitFailure, "some books were rejected")
	assert.Equal(t, "some books were rejected", plain.Error())

	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown command")))
	assert.Equal(t, ErrCodeUsage, ErrorCode(errors.New("unknown command")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
}

func TestDescribe_IncludesCause(t *testing.T) {
	code, message, details := describe(library.NewStorageError("list books", errors.New("database is locked")))
	assert.Equal(t, "STORAGE", code)
	assert.True(t, strings.HasPrefix(message, "list books: "))
	assert.Contains(t, message, "database is locked")
	assert.Nil(t, details)
}
