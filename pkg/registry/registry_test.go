package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	reg := Default()

	require.NoError(t, reg.Validate())
	assert.Len(t, reg.Activities, 5)

	for _, taskType := range []string{"process-query", "classify-intent", "lookup-balance", "search-knowledge-base", "generate-answer"} {
		a, ok := reg.Find(taskType)
		assert.True(t, ok, taskType)
		assert.NotEmpty(t, a.DisplayName, taskType)
		assert.NotEmpty(t, a.Timeout, taskType)
	}
}

func TestFind_Unknown(t *testing.T) {
	_, ok := Default().Find("send-email")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		reg     ActivityRegistry
		wantErr string
	}{
		{
			name: "empty registry",
			reg:  ActivityRegistry{},
		},
		{
			name:    "missing task type",
			reg:     ActivityRegistry{Activities: []Activity{{ID: "x"}}},
			wantErr: "has no taskType",
		},
		{
			name: "duplicate task type",
			reg: ActivityRegistry{Activities: []Activity{
				{ID: "a", TaskType: "lookup-balance"},
				{ID: "b", TaskType: "lookup-balance"},
			}},
			wantErr: "duplicate taskType",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "activities.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"version": "2.0.0",
			"activities": [
				{"id": "process-query", "taskType": "process-query", "timeout": "30s", "errorCodes": ["system_error"]}
			]
		}`), 0o644))

		reg, err := LoadRegistry(path)
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", reg.Version)
		a, ok := reg.Find("process-query")
		require.True(t, ok)
		assert.Equal(t, "30s", a.Timeout)
		assert.Equal(t, []string{"system_error"}, a.ErrorCodes)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"activities": [`), 0o644))

		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse registry")
	})

	t.Run("invalid entries", func(t *testing.T) {
		path := filepath.Join(dir, "dupes.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"activities": [{"taskType": "a"}, {"taskType": "a"}]}`), 0o644))

		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate taskType")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
