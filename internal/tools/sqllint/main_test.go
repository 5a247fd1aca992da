package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = "package q\n\n" +
	"const QGood = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;\n`\n\n" +
	"const QMissing = `select id from jobs;`\n\n" +
	"const QBadMarker = `--sql not-a-uuid\nupdate jobs set status = 'failed';`\n\n" +
	"const notSQL = `hello world`\n"

func TestLintSource(t *testing.T) {
	stmts, violations, err := lintSource("q.go", []byte(sampleSource))
	require.NoError(t, err)

	require.Len(t, stmts, 1)
	assert.Equal(t, "QGood", stmts[0].name)
	assert.Equal(t, "11111111-2222-4333-8444-555555555555", stmts[0].marker)

	require.Len(t, violations, 2)
	assert.Equal(t, "QMissing", violations[0].name)
	assert.Equal(t, "QBadMarker", violations[1].name)
}

func TestDuplicateMarkers(t *testing.T) {
	stmts := []statement{
		{file: "a.go", name: "QOne", line: 3, marker: "m1"},
		{file: "b.go", name: "QTwo", line: 7, marker: "m1"},
		{file: "b.go", name: "QThree", line: 9, marker: "m2"},
	}
	got := duplicateMarkers(stmts)
	require.Len(t, got, 1)
	assert.Equal(t, "QTwo", got[0].name)
	assert.Contains(t, got[0].message, "already used by QOne")
}

func TestRepositoryQueriesAreMarked(t *testing.T) {
	files, err := goFiles("../../sqlinline")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var all []statement
	for _, f := range files {
		src, err := os.ReadFile(f)
		require.NoError(t, err)
		stmts, violations, err := lintSource(f, src)
		require.NoError(t, err)
		assert.Empty(t, violations, f)
		all = append(all, stmts...)
	}
	assert.Empty(t, duplicateMarkers(all))
}
