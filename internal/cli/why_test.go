package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/context-cache/ctxc/internal/core/domain"
)

func TestWhyCmdUse(t *testing.T) {
	assert.Equal(t, "why [query-id]", whyCmd.Use)
}

func TestWhyCmdRequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"why"})
	defer rootCmd.SetArgs(nil)

	assert.Error(t, rootCmd.Execute())
}

func TestWhyCmdReplaysJournaledQuery(t *testing.T) {
	retriever := &fakeCLIRetriever{
		query:   domain.Query{ID: "q1"},
		results: []domain.ResultItem{{Rank: 1, Title: "Doc A", Score: 0.5}},
	}
	cleanup := setupTestCLIServices(&fakeCLIStore{}, retriever)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"why", "q1"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "q1")
	assert.Contains(t, buf.String(), "Doc A")
}

func TestWhyCmdPropagatesError(t *testing.T) {
	retriever := &fakeCLIRetriever{err: domain.ErrNotFound}
	cleanup := setupTestCLIServices(&fakeCLIStore{}, retriever)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"why", "missing"})
	defer rootCmd.SetArgs(nil)

	assert.Error(t, rootCmd.Execute())
}
