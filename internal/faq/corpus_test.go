package faq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shank50/supportbotai/internal/domain"
)

func TestDefaultCorpus(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 0)

	f, ok := c.Lookup("faq-3")
	require.True(t, ok)
	assert.Equal(t, "How do I reset my password?", f.Question)
	assert.Equal(t, "account", f.Category)
}

func TestLookupMissing(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	f, ok := c.Lookup("faq-999")
	assert.False(t, ok)
	assert.Nil(t, f)
}

func TestLookupReturnsCopy(t *testing.T) {
	c, err := New([]domain.FAQ{{ID: "a", Question: "q", Answer: "a"}})
	require.NoError(t, err)

	f, _ := c.Lookup("a")
	f.Question = "mutated"

	again, _ := c.Lookup("a")
	assert.Equal(t, "q", again.Question)
}

func TestNewValidation(t *testing.T) {
	_, err := New([]domain.FAQ{
		{ID: "a", Question: "q", Answer: "a"},
		{ID: "a", Question: "q2", Answer: "a2"},
		{ID: "", Question: "q3", Answer: "a3"},
		{ID: "b", Question: "", Answer: "a4"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), "id is required")
	assert.Contains(t, err.Error(), "question is required")
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "faqs.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"faqs":[{"id":"j1","question":"Q?","answer":"A.","category":"c","keywords":["k"]}]}`), 0o644))
	c, err := Load(jsonPath)
	require.NoError(t, err)
	f, ok := c.Lookup("j1")
	require.True(t, ok)
	assert.Equal(t, []string{"k"}, f.Keywords)

	yamlPath := filepath.Join(dir, "faqs.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("faqs:\n  - id: y1\n    question: Q?\n    answer: A.\n"), 0o644))
	c, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = Load(filepath.Join(dir, "faqs.txt"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Len())
}
