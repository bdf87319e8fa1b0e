package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withVersion sets the root version for the duration of the test.
func withVersion(t *testing.T, v string) {
	t.Helper()
	original := rootCmd.Version
	SetVersion(v)
	t.Cleanup(func() { rootCmd.Version = original })
}

func TestRootCmd(t *testing.T) {
	assert.Equal(t, "mcp-zendesk", rootCmd.Use)
	assert.Equal(t, "MCP server for Zendesk Support and Help Center", rootCmd.Short)
	assert.Contains(t, rootCmd.Long, "Model Context Protocol")
	assert.Contains(t, rootCmd.Long, "mcp-zendesk serve")
	assert.True(t, rootCmd.SilenceUsage)

	subcommands := map[string]*cobra.Command{}
	for _, c := range rootCmd.Commands() {
		subcommands[c.Name()] = c
	}
	for _, name := range []string{"serve", "version", "self-update"} {
		assert.Contains(t, subcommands, name)
	}
}

func TestVersionCmd(t *testing.T) {
	for _, v := range []string{"dev", "v0.4.1", ""} {
		t.Run("version "+v, func(t *testing.T) {
			withVersion(t, v)

			cmd := newVersionCmd()
			cmd.SetArgs([]string{})
			var out bytes.Buffer
			cmd.SetOut(&out)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, "mcp-zendesk version "+v+"\n", out.String())
		})
	}
}

func TestSelfUpdateCmd_RefusesDevelopmentBuilds(t *testing.T) {
	for _, v := range []string{"dev", ""} {
		t.Run("version "+v, func(t *testing.T) {
			withVersion(t, v)

			cmd := newSelfUpdateCmd()
			cmd.SetArgs([]string{})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			assert.ErrorContains(t, cmd.Execute(), "cannot self-update a development version")
		})
	}
}

func TestSelfUpdateCmd(t *testing.T) {
	cmd := newSelfUpdateCmd()

	assert.Equal(t, "self-update", cmd.Use)
	assert.Equal(t, "Update mcp-zendesk to the latest version", cmd.Short)
	assert.Contains(t, cmd.Long, "GitHub")
	assert.Equal(t, "giantswarm/mcp-zendesk", githubRepoSlug)
}
