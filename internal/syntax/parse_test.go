package syntax

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `// Package sample exercises the tree builder.
package sample

import "errors"

// Store keeps things.
type Store struct{}

type (
	// Key identifies an entry.
	Key string
	Value []byte
)

// Get returns a value.
func (s *Store) Get(k Key) (Value, error) {
	if k == "" {
		return nil, errors.New("empty key")
	}
	for i := 0; i < 3; i++ {
		switch i {
		case 1:
			if i > 0 {
				continue
			}
		}
	}
	return nil, nil
}

func helper() {}
`

func TestParse_Units(t *testing.T) {
	tree, err := Parse("sample.go", []byte(sampleSource))
	require.NoError(t, err)

	assert.Equal(t, "sample", tree.Package.Name)
	require.NotNil(t, tree.Package.Doc)
	assert.Equal(t, 6, tree.Package.Doc.Words())

	require.Len(t, tree.Types, 3)
	assert.Equal(t, "Store", tree.Types[0].Name)
	require.NotNil(t, tree.Types[0].Doc, "single-spec GenDecl doc should attach to the type")
	assert.Equal(t, "Key", tree.Types[1].Name)
	assert.NotNil(t, tree.Types[1].Doc)
	assert.Equal(t, "Value", tree.Types[2].Name)
	assert.Nil(t, tree.Types[2].Doc)

	require.Len(t, tree.Functions, 2)
	get := tree.Functions[0]
	assert.Equal(t, "Get", get.Name)
	assert.Equal(t, KindMethod, get.Kind)
	assert.Equal(t, "Store", get.Receiver)
	assert.Equal(t, "Store.Get", get.QualifiedName())
	assert.Equal(t, 3, get.BodyStatements)
	require.NotNil(t, get.Doc)

	helper := tree.Functions[1]
	assert.Equal(t, KindFunction, helper.Kind)
	assert.Nil(t, helper.Doc)
	assert.Equal(t, 0, helper.BodyStatements)
}

func TestParse_Blocks(t *testing.T) {
	tree, err := Parse("sample.go", []byte(sampleSource))
	require.NoError(t, err)

	blocks := tree.Functions[0].Blocks
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockIf, blocks[0].Kind)
	assert.Empty(t, blocks[0].Children)

	loop := blocks[1]
	assert.Equal(t, BlockFor, loop.Kind)
	require.Len(t, loop.Children, 1)
	assert.Equal(t, BlockSwitch, loop.Children[0].Kind)
	require.Len(t, loop.Children[0].Children, 1)
	assert.Equal(t, BlockIf, loop.Children[0].Children[0].Kind)
}

func TestParse_ElseIfChainIsFlat(t *testing.T) {
	src := `package p

func f(x int) {
	if x == 1 {
	} else if x == 2 {
	} else {
		for {
		}
	}
}
`
	tree, err := Parse("p.go", []byte(src))
	require.NoError(t, err)

	blocks := tree.Functions[0].Blocks
	require.Len(t, blocks, 2, "if and else-if are siblings")
	assert.Empty(t, blocks[0].Children)
	require.Len(t, blocks[1].Children, 1, "plain else body belongs to the last if")
	assert.Equal(t, BlockFor, blocks[1].Children[0].Kind)
}

func TestParse_TransparentBlocksAndLabels(t *testing.T) {
	src := `package p

func f() {
	{
		if true {
		}
	}
outer:
	for range []int{1} {
		break outer
	}
	go func() {
		if true {
		}
	}()
}
`
	tree, err := Parse("p.go", []byte(src))
	require.NoError(t, err)

	blocks := tree.Functions[0].Blocks
	require.Len(t, blocks, 2, "function literals do not contribute nesting")
	assert.Equal(t, BlockIf, blocks[0].Kind)
	assert.Equal(t, BlockRange, blocks[1].Kind)
}

func TestParse_InvalidSource(t *testing.T) {
	_, err := Parse("bad.go", []byte("package p\n\nfunc {"))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.go", perr.Path)
	assert.Equal(t, 3, perr.Line)
	assert.Contains(t, perr.Error(), "bad.go:3")
}

func TestParse_BodylessDeclarationSkipped(t *testing.T) {
	tree, err := Parse("asm.go", []byte("package p\n\nfunc add(a, b int) int\n"))
	require.NoError(t, err)
	assert.Empty(t, tree.Functions)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.go"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))
}

func TestDoc_Words(t *testing.T) {
	var missing *Doc
	assert.Equal(t, 0, missing.Words())
	assert.Equal(t, 4, (&Doc{Text: "  one two\nthree\tfour "}).Words())
}
