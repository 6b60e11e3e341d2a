package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sindarin-lang/snc/internal/token"
)

func newTestSink() (*Sink, *bytes.Buffer, *bytes.Buffer) {
	s := New(nil)
	s.SetNoColor(true)
	var out, errOut bytes.Buffer
	s.SetOutputs(&out, &errOut)
	return s, &out, &errOut
}

func tok(source string, start, line int) token.Token {
	return token.Token{File: "t.sn", Source: source, Start: start, Line: line, Length: 1}
}

func TestErrorfIncrementsCount(t *testing.T) {
	s, _, errOut := newTestSink()
	require.False(t, s.HadError())
	s.Errorf(tok("abc", 1, 1), "bad token %q", "x")
	require.True(t, s.HadError())
	require.Equal(t, 1, s.ErrorCount())
	require.Contains(t, errOut.String(), "bad token")
}

func TestWarnDoesNotCountAsError(t *testing.T) {
	s, _, _ := newTestSink()
	s.Warnf(tok("abc", 0, 1), "suspicious")
	require.False(t, s.HadError())
	require.Equal(t, 1, s.WarningCount())
}

func TestResetClearsCounts(t *testing.T) {
	s, _, _ := newTestSink()
	s.Errorf(tok("abc", 0, 1), "e1")
	s.Warnf(tok("abc", 0, 1), "w1")
	s.Reset()
	require.Equal(t, 0, s.ErrorCount())
	require.Equal(t, 0, s.WarningCount())
	require.False(t, s.HadError())
	require.Empty(t, s.Diagnostics())
}

func TestCompileFailedSummaryMentionsCount(t *testing.T) {
	s, _, errOut := newTestSink()
	s.Errorf(tok("abc", 0, 1), "oops")
	s.CompileFailed()
	require.Contains(t, errOut.String(), "1 error")
}

func TestCompileSuccessSummaryMentionsPath(t *testing.T) {
	s, out, _ := newTestSink()
	s.CompileSuccess("a.out", 4096, 0)
	require.Contains(t, out.String(), "a.out")
}
