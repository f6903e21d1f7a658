package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseHandlers(t *testing.T, body string) []Handler {
	t.Helper()
	src := "package p\n\nfunc run() error {\n" + body + "\n\treturn nil\n}\n"
	tree, err := Parse("p.go", []byte(src))
	require.NoError(t, err)
	return tree.Handlers
}

func TestHandlers(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     int
		kind     HandlerKind
		catchAll bool
		noOp     bool
	}{
		{
			name: "discarded recover",
			body: "\tdefer func() { recover() }()",
			want: 1, kind: HandlerRecover, catchAll: true, noOp: true,
		},
		{
			name: "blank-assigned recover",
			body: "\tdefer func() { _ = recover() }()",
			want: 1, kind: HandlerRecover, catchAll: true, noOp: true,
		},
		{
			name: "recover with empty if body",
			body: "\tdefer func() {\n\t\tif r := recover(); r != nil {\n\t\t}\n\t}()",
			want: 1, kind: HandlerRecover, catchAll: true, noOp: true,
		},
		{
			name: "recover inspected with type switch",
			body: "\tdefer func() {\n\t\tif r := recover(); r != nil {\n\t\t\tswitch r.(type) {\n\t\t\tcase error:\n\t\t\t\tpanic(r)\n\t\t\t}\n\t\t}\n\t}()",
			want: 1, kind: HandlerRecover, catchAll: false, noOp: false,
		},
		{
			name: "recover asserted to error",
			body: "\tdefer func() {\n\t\tif err, ok := recover().(error); ok {\n\t\t\tprintln(err.Error())\n\t\t}\n\t}()",
			want: 1, kind: HandlerRecover, catchAll: false, noOp: false,
		},
		{
			name: "recover bound then logged",
			body: "\tdefer func() {\n\t\tr := recover()\n\t\tprintln(r)\n\t}()",
			want: 1, kind: HandlerRecover, catchAll: true, noOp: false,
		},
		{
			name: "empty error check",
			body: "\terr := work()\n\tif err != nil {\n\t}",
			want: 1, kind: HandlerErrorCheck, catchAll: false, noOp: true,
		},
		{
			name: "blank error check",
			body: "\tif err := work(); err != nil {\n\t\t_ = err\n\t}",
			want: 1, kind: HandlerErrorCheck, catchAll: false, noOp: true,
		},
		{
			name: "handled error check",
			body: "\tif err := work(); err != nil {\n\t\treturn err\n\t}",
			want: 1, kind: HandlerErrorCheck, catchAll: false, noOp: false,
		},
		{
			name: "suffix named error",
			body: "\tvar closeErr error\n\tif closeErr != nil {\n\t}",
			want: 1, kind: HandlerErrorCheck, catchAll: false, noOp: true,
		},
		{
			name: "unrelated nil check",
			body: "\tvar p *int\n\tif p != nil {\n\t}",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := parseHandlers(t, tt.body)
			require.Len(t, handlers, tt.want)
			if tt.want == 0 {
				return
			}
			h := handlers[0]
			assert.Equal(t, "run", h.Function)
			assert.Equal(t, tt.kind, h.Kind)
			assert.Equal(t, tt.catchAll, h.CatchAll, "catch-all")
			assert.Equal(t, tt.noOp, h.NoOp, "no-op")
			assert.Greater(t, h.Line, 0)
		})
	}
}

func TestHandlers_ElseIfChainAndNestedClauses(t *testing.T) {
	body := "\terr := work()\n" +
		"\tif err == nil {\n\t} else if err != nil {\n\t}\n" +
		"\tswitch {\n\tcase true:\n\t\tif err != nil {\n\t\t\treturn err\n\t\t}\n\t}"

	handlers := parseHandlers(t, body)
	require.Len(t, handlers, 2)
	assert.True(t, handlers[0].NoOp)
	assert.False(t, handlers[1].NoOp)
}

func TestHandlers_MethodQualifiedName(t *testing.T) {
	src := "package p\n\ntype T struct{}\n\nfunc (t *T) Close() {\n\tdefer func() { recover() }()\n}\n"
	tree, err := Parse("p.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, tree.Handlers, 1)
	assert.Equal(t, "T.Close", tree.Handlers[0].Function)
}
