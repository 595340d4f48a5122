package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/context-cache/ctxc/internal/core/domain"
)

func TestQueryCmdUse(t *testing.T) {
	assert.Equal(t, "query [text]", queryCmd.Use)
}

func TestQueryCmdRequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestQueryCmdPrintsResults(t *testing.T) {
	retriever := &fakeCLIRetriever{
		query: domain.Query{ID: "q1"},
		results: []domain.ResultItem{
			{Rank: 1, Title: "Doc A", Score: 0.9, Snippet: "a snippet", Provenance: domain.Provenance{Path: "/a.md"}},
		},
	}
	cleanup := setupTestCLIServices(&fakeCLIStore{}, retriever)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "hello"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryJSON = false
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "q1")
	assert.Contains(t, buf.String(), "Doc A")
	assert.Contains(t, buf.String(), "a snippet")
}

func TestQueryCmdJSONOutput(t *testing.T) {
	retriever := &fakeCLIRetriever{
		query:   domain.Query{ID: "q1"},
		results: []domain.ResultItem{{Rank: 1, ChunkID: "c1"}},
	}
	cleanup := setupTestCLIServices(&fakeCLIStore{}, retriever)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "--json", "hello"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryJSON = false
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "\"query_id\"")
	assert.Contains(t, buf.String(), "\"c1\"")
}

func TestQueryCmdPropagatesError(t *testing.T) {
	retriever := &fakeCLIRetriever{err: domain.ErrSearchUnavailable}
	cleanup := setupTestCLIServices(&fakeCLIStore{}, retriever)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "hello"})
	defer rootCmd.SetArgs(nil)

	assert.Error(t, rootCmd.Execute())
}
