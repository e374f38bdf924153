package erroranalyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
)

type fakeProvider struct {
	resp llm.Response
	err  error
}

func (f fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return f.resp, f.err
}

func TestAnalyze_ParsesSections(t *testing.T) {
	body := `FAILURE TYPE:
Assertion error

ERROR LOCATION:
main_test.go:12

ROOT CAUSE:
off by one

DETAILED ANALYSIS:
the loop bound was wrong

RECOMMENDATIONS:
fix the bound

MISSING WRITE FILES:
["helpers.go", "util.go"]`

	a := New(fakeProvider{resp: llm.Response{Content: body}})
	pb, err := protoblock.New("t", "m", "b", []string{"a.go"}, nil, nil, nil)
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), pb, "FAIL: test", map[string]string{"a.go": "package a"})
	require.NoError(t, err)
	assert.Equal(t, "Assertion error", analysis.FailureType)
	assert.Equal(t, "off by one", analysis.RootCause)
	assert.Equal(t, []string{"helpers.go", "util.go"}, analysis.MissingWriteFiles)
}

func TestAnalyze_EmptyResponseIsError(t *testing.T) {
	a := New(fakeProvider{resp: llm.Response{Content: "   "}})
	pb, err := protoblock.New("t", "m", "b", nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), pb, "", nil)
	assert.Error(t, err)
}

func TestParse_UnstructuredFallsBackToRaw(t *testing.T) {
	analysis := parse("not structured at all")
	assert.Equal(t, "not structured at all", analysis.Raw)
	assert.Empty(t, analysis.FailureType)
}
