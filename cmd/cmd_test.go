package cmd

import (
	"testing"

	"github.com/pancstage/pancstage/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLabCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	for _, lf := range labFlags {
		c.Flags().String(lf.flag, "", lf.usage)
	}
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestLabFields(t *testing.T) {
	c := newLabCommand(t, "--ca19-9", "500", "--total-bilirubin", "1.2", "--alp", "120",
		"--albumin", "3.5", "--nlr", "4", "--age", "55")

	fields, err := labFields(c)
	require.NoError(t, err)
	assert.Equal(t, "500", fields[schema.FieldCA199])
	assert.Equal(t, "55", fields[schema.FieldAge])

	panel, err := schema.ParseLabPanel(fields)
	require.NoError(t, err)
	assert.Equal(t, schema.LabPanel{CA199: 500, TotalBilirubin: 1.2, ALP: 120, Albumin: 3.5, NLR: 4, Age: 55}, panel)
}

func TestLabFieldsUnsetAreRequired(t *testing.T) {
	fields, err := labFields(newLabCommand(t, "--ca19-9", "500"))
	require.NoError(t, err)
	assert.Len(t, fields, 1)

	_, err = schema.ParseLabPanel(fields)
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
}

func TestHistoryBackend(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("config", "")
	viper.Set("store-backend", "none")
	backend, _, err := historyBackend()
	require.NoError(t, err)
	assert.Equal(t, schema.NoneBackend, backend)

	viper.Set("store-backend", "mongodb")
	_, _, err = historyBackend()
	assert.ErrorContains(t, err, "invalid store backend")

	viper.Set("store-backend", "mysql")
	viper.Set("store-db-connect", "")
	_, _, err = historyBackend()
	assert.ErrorContains(t, err, "store-db-connect is required")
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"predict", "batch", "profile", "report", "history", "mcp", "serve", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.Len(t, historyCmd.Commands(), 4)
}
