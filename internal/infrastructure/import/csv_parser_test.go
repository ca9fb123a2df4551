package csvimport

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFname,comment\nR1,x"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, "name", parser.Headers()[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.Nil(t, parser)
	})

	t.Run("Invalid encoding", func(t *testing.T) {
		_, err := NewCSVParser(bytes.NewReader([]byte{'n', 0xff, 0xfe, '\n'}))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		head string
		want rune
	}{
		{"comma", "name,comment,parent\n", ','},
		{"semicolon", "name;comment;parent\n", ';'},
		{"tab", "name\tcomment\n", '\t'},
		{"quoted commas are ignored", `"a,b,c";"d"` + "\n", ';'},
		{"single column", "name\n", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDelimiter([]byte(tt.head)))
		})
	}

	p, err := NewCSVParser(strings.NewReader("a;b\n1;2"), WithDelimiter(','))
	require.NoError(t, err)
	assert.Equal(t, ',', p.Delimiter())
}

func TestReadRows(t *testing.T) {
	data := "Name;Comment;Parent\nR1;first;\n;;\nR2;\"semi;colon\";Resistors\nR3\n"
	rows, err := ReadRows(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "R1", rows[0].Get("name"))
	assert.Equal(t, 2, rows[0].LineNumber)
	assert.Equal(t, "semi;colon", rows[1].Get("comment"))
	assert.Equal(t, "Resistors", rows[1].Get("parent"))
	assert.Equal(t, 4, rows[1].LineNumber)
	assert.Equal(t, "", rows[2].Get("parent"))
	assert.Equal(t, "fallback", rows[2].GetOrDefault("comment", "fallback"))
}

func TestCSVParser_Headers(t *testing.T) {
	p, err := NewCSVParser(strings.NewReader(" Name , MPN\nx,y"))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	assert.True(t, p.HasHeader("mpn"))
	assert.Equal(t, []string{"category"}, p.ValidateHeaders([]string{"name", "category"}))

	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "y", row.Get("mpn"))
	_, err = p.ReadRow()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, p.TotalRows())
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, []string{"id", "name", "comment"})
	require.NoError(t, err)
	require.NoError(t, w.Write(map[string]string{"id": "1", "name": "R;1"}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "id;name;comment\n1;\"R;1\";\n", buf.String())

	rows, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "R;1", rows[0].Get("name"))
}
