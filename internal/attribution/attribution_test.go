package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEdit_PureInsertionNoOverride(t *testing.T) {
	old := []string{"a", "b", "c"}
	new := []string{"a", "x", "b", "c"}
	prev := List{{StartLine: 1, EndLine: 3, AuthorID: "alice"}}

	got := ApplyEdit(prev, old, new, "bob")
	require.NoError(t, got.Validate(len(new)))

	author, ok := got.AuthorAt(2)
	require.True(t, ok)
	assert.Equal(t, "bob", author)
	assert.Empty(t, mustFind(t, got, 2).Overrode)

	assert.Equal(t, "alice", mustFind(t, got, 1).AuthorID)
	assert.Equal(t, "alice", mustFind(t, got, 4).AuthorID)
}

func TestApplyEdit_SameLineReplacementRecordsOverride(t *testing.T) {
	old := []string{"fn foo() {}"}
	new := []string{"fn foo() { return 1; }"}
	prev := List{{StartLine: 1, EndLine: 1, AuthorID: "alice"}}

	got := ApplyEdit(prev, old, new, "bob")
	require.NoError(t, got.Validate(len(new)))
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].AuthorID)
	assert.Equal(t, "alice", got[0].Overrode)
}

func TestApplyEdit_SameAuthorReplacementHasNoOverride(t *testing.T) {
	old := []string{"fn foo() {}"}
	new := []string{"fn foo() { return 1; }"}
	prev := List{{StartLine: 1, EndLine: 1, AuthorID: "alice"}}

	got := ApplyEdit(prev, old, new, "alice")
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].AuthorID)
	assert.Empty(t, got[0].Overrode)
}

func TestApplyEdit_DeletionDropsLineAndMergesNeighbours(t *testing.T) {
	old := []string{"a", "b", "c", "d"}
	new := []string{"a", "c", "d"}
	prev := List{{StartLine: 1, EndLine: 4, AuthorID: "alice"}}

	got := ApplyEdit(prev, old, new, "bob")
	require.NoError(t, got.Validate(len(new)))
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].AuthorID)
	assert.Equal(t, 1, got[0].StartLine)
	assert.Equal(t, 3, got[0].EndLine)
}

func TestApplyEdit_NeighboursDoNotMergeAcrossDifferentAuthors(t *testing.T) {
	old := []string{"a", "b"}
	new := []string{"a", "x", "b"}
	prev := List{
		{StartLine: 1, EndLine: 1, AuthorID: "alice"},
		{StartLine: 2, EndLine: 2, AuthorID: "carol"},
	}

	got := ApplyEdit(prev, old, new, "bob")
	require.NoError(t, got.Validate(len(new)))
	require.Len(t, got, 3)
	assert.Equal(t, "alice", got[0].AuthorID)
	assert.Equal(t, "bob", got[1].AuthorID)
	assert.Equal(t, "carol", got[2].AuthorID)
}

func TestMergeWithInitial_InitialWinsOverBlame(t *testing.T) {
	seed := List{{StartLine: 1, EndLine: 3, AuthorID: "alice"}}
	initial := List{{StartLine: 2, EndLine: 2, AuthorID: "prompt-7"}}

	got := MergeWithInitial(seed, initial, 3)
	require.NoError(t, got.Validate(3))
	assert.Equal(t, "alice", mustFind(t, got, 1).AuthorID)
	assert.Equal(t, "prompt-7", mustFind(t, got, 2).AuthorID)
	assert.Equal(t, "alice", mustFind(t, got, 3).AuthorID)
}

func TestMergeWithInitial_BlameFillsAllGapsWhenInitialEmpty(t *testing.T) {
	seed := List{{StartLine: 1, EndLine: 2, AuthorID: "alice"}}
	got := MergeWithInitial(seed, nil, 2)
	require.NoError(t, got.Validate(2))
	assert.Equal(t, "alice", mustFind(t, got, 1).AuthorID)
}

func TestList_ValidateRejectsGap(t *testing.T) {
	l := List{{StartLine: 1, EndLine: 1, AuthorID: "a"}, {StartLine: 3, EndLine: 3, AuthorID: "b"}}
	assert.Error(t, l.Validate(3))
}

func TestList_ValidateRejectsShortCoverage(t *testing.T) {
	l := List{{StartLine: 1, EndLine: 2, AuthorID: "a"}}
	assert.Error(t, l.Validate(3))
}

func mustFind(t *testing.T, l List, line int) LineAttribution {
	t.Helper()
	for _, r := range l {
		if line >= r.StartLine && line <= r.EndLine {
			return r
		}
	}
	t.Fatalf("line %d not covered", line)
	return LineAttribution{}
}
