package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const reply = "The GDP query:\n\n" +
	"```sql\nSELECT gdp FROM countries\nWHERE iso = 'USA';\n```\n\n" +
	"And in Go:\n\n" +
	"```go\nfmt.Println(gdp)\n```\n\n" +
	"    indented block\n"

func TestExtractCodeBlocks(t *testing.T) {
	blocks := ExtractCodeBlocks(reply)
	require.Equal(t, []CodeBlock{
		{Language: "sql", Content: "SELECT gdp FROM countries\nWHERE iso = 'USA';"},
		{Language: "go", Content: "fmt.Println(gdp)"},
		{Content: "indented block"},
	}, blocks)
}

func TestExtractCodeBlocks_FilterLanguages(t *testing.T) {
	blocks := ExtractCodeBlocks(reply, "SQL")
	require.Len(t, blocks, 1)
	require.Equal(t, "sql", blocks[0].Language)
}

func TestExtractCodeBlocks_NoCode(t *testing.T) {
	require.Empty(t, ExtractCodeBlocks("The GDP of the USA in 2023 was about $27 trillion."))
}

func TestWriteCodeBlocks(t *testing.T) {
	blocks := []CodeBlock{{Language: "go", Content: "x := 1"}}

	var plain bytes.Buffer
	require.NoError(t, WriteCodeBlocks(&plain, blocks, false))
	require.Equal(t, "x := 1\n", plain.String())

	var fenced bytes.Buffer
	require.NoError(t, WriteCodeBlocks(&fenced, blocks, true))
	require.Equal(t, "```go\nx := 1\n```\n", fenced.String())
}
