package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "mcp", "migrate", "ingest", "ask", "documents", "purge", "import-github"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	require.NotNil(t, root.PersistentFlags().Lookup("log-level"))
	require.NotNil(t, root.PersistentFlags().Lookup("log-json"))
}

func TestRootCmd_ArgumentValidation(t *testing.T) {
	root := newRootCmd()

	ingest, _, err := root.Find([]string{"ingest"})
	require.NoError(t, err)
	assert.Error(t, ingest.Args(ingest, nil))
	assert.NoError(t, ingest.Args(ingest, []string{"notes.txt"}))
	assert.NotNil(t, ingest.Flags().Lookup("title"))
	assert.NotNil(t, ingest.Flags().Lookup("content-type"))

	ask, _, err := root.Find([]string{"ask"})
	require.NoError(t, err)
	assert.Error(t, ask.Args(ask, []string{"a", "b"}))
	assert.NotNil(t, ask.Flags().Lookup("document"))

	purge, _, err := root.Find([]string{"purge"})
	require.NoError(t, err)
	assert.Error(t, purge.Args(purge, nil))
}
