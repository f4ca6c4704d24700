package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var testContentFiles = map[string]string{
	"posts/value-investing.md": "---\ntitle: Value Investing Notes\ndate: 2025-06-10\ncategory: Finance\ntags: [finance]\n---\nMargin of safety matters.\n",
	"projects/screener.md":     "---\ntitle: Stock Screener\nstatus: completed\ntags: [finance, go]\n---\nScreens stocks by value.\n",
}

func writeTestContent(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for relPath, body := range testContentFiles {
		fullPath := filepath.Join(root, relPath)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, os.WriteFile(fullPath, []byte(body), 0644))
	}
	return root
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSearchCommandTable(t *testing.T) {
	assert := require.New(t)
	contentDir := writeTestContent(t)

	output, err := executeCommand(t, "search", "--env", "test", "--content-dir", contentDir, "value")
	assert.NoError(err)
	assert.Contains(output, "Results:")
	assert.Contains(output, "Value Investing Notes (post,")
	assert.Contains(output, "Stock Screener (project,")
	assert.Contains(output, "2025-06-10 · Finance · #finance")
}

func TestSearchCommandJSON(t *testing.T) {
	assert := require.New(t)
	contentDir := writeTestContent(t)

	output, err := executeCommand(t, "search", "--env", "test", "--content-dir", contentDir, "--type", "project", "--json")
	assert.NoError(err)

	var results []map[string]any
	assert.NoError(json.Unmarshal([]byte(output), &results))
	assert.Len(results, 1)
	assert.Equal("project-screener", results[0]["id"])
	assert.Equal(float64(0), results[0]["score"])
}

func TestSearchCommandNoResults(t *testing.T) {
	assert := require.New(t)
	contentDir := writeTestContent(t)

	output, err := executeCommand(t, "search", "--env", "test", "--content-dir", contentDir, "kubernetes")
	assert.NoError(err)
	assert.Contains(output, "No results found.")
}

var invalidSearchFlagTestCases = []struct {
	name string
	args []string
}{
	{name: "InvalidSort", args: []string{"search", "--sort", "popularity", "go"}},
	{name: "InvalidType", args: []string{"search", "--type", "video", "go"}},
	{name: "TooManyArgs", args: []string{"search", "one", "two"}},
}

func TestSearchCommandInvalidFlags(t *testing.T) {
	for _, testCase := range invalidSearchFlagTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			_, err := executeCommand(t, testCase.args...)
			assert.Error(err)
		})
	}
}

func TestSearchCommandFlags(t *testing.T) {
	assert := require.New(t)
	searchCmd, _, err := NewRootCommand().Find([]string{"search"})
	assert.NoError(err)

	limit := searchCmd.Flags().Lookup("limit")
	assert.NotNil(limit)
	assert.Equal("n", limit.Shorthand)
	assert.Equal("10", limit.DefValue)
	assert.NotNil(searchCmd.Flags().Lookup("json"))
	assert.NotNil(searchCmd.Flags().Lookup("tags"))
}
