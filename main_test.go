package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCatalogCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog", "--env-file", t.TempDir() + "/missing.env"})
	require.NoError(t, cmd.Execute())

	var doc struct {
		Questions []catalogEntry `yaml:"questions"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	require.NotEmpty(t, doc.Questions)

	byID := map[string]catalogEntry{}
	for _, q := range doc.Questions {
		byID[q.ID] = q
	}
	assert.Equal(t, "apptype", byID["app_type"].Key)
	assert.Equal(t, `collect_personal_data == "true"`, byID["collect_email"].ShowIf)
	assert.Empty(t, byID["app_type"].ShowIf)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--memory", "--env-file", t.TempDir() + "/missing.env"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be set")
	assert.NotContains(t, err.Error(), "DATABASE_URL", "--memory does not need a database")
}
