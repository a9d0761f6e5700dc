package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a", "a"},
		{"a & b", "(a & b)"},
		{"a | b & c", "(a | (b & c))"},
		{"a & b | c", "((a & b) | c)"},
		{"a - b & c", "(a - (b & c))"},
		{"a | b - c", "(a | (b - c))"},
		{"a - b - c", "((a - b) - c)"},
		{"!a & b", "(!a & b)"},
		{"!!a", "!!a"},
		{"!(a | b)", "!(a | b)"},
		{"(a | b) & c", "((a | b) & c)"},
		{"a -b", "(a - b)"},
		{"a-b", "a-b"},
		{"(a)-b", "(a - b)"},
		{"  x.1_y  ", "x.1_y"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := ParseExpr(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())

			// The printed form parses back to the same tree.
			again, err := ParseExpr(e.String())
			require.NoError(t, err)
			assert.Equal(t, e, again)
		})
	}
}

func TestParseExprErrors(t *testing.T) {
	tests := []struct {
		in  string
		pos int
	}{
		{"", 0},
		{"a &", 3},
		{"(a | b", 6},
		{"a b", 2},
		{"a & & b", 4},
		{"a $ b", 2},
		{"a - -b", 4},
		{")", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseExpr(tt.in)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.in, pe.Expr)
			assert.Equal(t, tt.pos, pe.Pos)
		})
	}
}

func TestParseExprDepth(t *testing.T) {
	ok := []string{
		strings.Repeat("!", MaxExprDepth) + "a",
		strings.Repeat("(", MaxExprDepth) + "a" + strings.Repeat(")", MaxExprDepth),
		strings.Repeat("a | ", 4*MaxExprDepth) + "a",
	}

	for _, in := range ok {
		_, err := ParseExpr(in)
		require.NoError(t, err)
	}

	deep := []string{
		strings.Repeat("!", MaxExprDepth+1) + "a",
		strings.Repeat("(", MaxExprDepth+1) + "a" + strings.Repeat(")", MaxExprDepth+1),
		strings.Repeat("!(", 1<<20) + "a",
	}

	for _, in := range deep {
		_, err := ParseExpr(in)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, MaxExprDepth, pe.Pos)
	}
}

func TestRefs(t *testing.T) {
	e, err := ParseExpr("b & (a | b) - !c & a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, Refs(e))

	assert.Equal(t, []string{"x"}, Refs(Not(Ref("x"))))
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"a", "A-1", "_x", ".hidden", "user.age-30"} {
		assert.True(t, ValidName(name), name)
	}

	long := make([]byte, maxNameLen+1)
	for i := range long {
		long[i] = 'a'
	}

	for _, name := range []string{"", "-a", "a b", "a/b", "é", string(long)} {
		assert.False(t, ValidName(name), name)
	}
}

func TestManifestName(t *testing.T) {
	name := manifestName(42, "abc")
	assert.Equal(t, "manifests/00000000000000000042-abc.json", name)

	v, err := parseManifestName(name + "\n")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	for _, bad := range []string{"42.json", "manifests/x.json", "manifests/1.txt"} {
		_, err := parseManifestName(bad)
		assert.Error(t, err, bad)
	}
}
