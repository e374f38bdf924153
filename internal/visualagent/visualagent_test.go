package visualagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
)

type fakeCapturer struct {
	png []byte
	err error
}

func (f fakeCapturer) Capture(ctx context.Context, url string) ([]byte, error) { return f.png, f.err }

type fakeVision struct {
	content string
	err     error
}

func (f fakeVision) CompleteVision(ctx context.Context, req llm.VisionRequest) (llm.Response, error) {
	return llm.Response{Content: f.content}, f.err
}

func newBlockWithImage(t *testing.T, agents []string) *protoblock.ProtoBlock {
	pb, err := protoblock.New("fix the hero banner", "msg", "branch", []string{"index.html"}, nil, agents, nil)
	require.NoError(t, err)
	pb.ImageURL = "https://example.test/page"
	return pb
}

func TestSimpleAgent_PassesAtMinimum(t *testing.T) {
	a := &SimpleAgent{Capturer: fakeCapturer{png: []byte{1}}, Vision: fakeVision{content: "GRADE: B\nfine"}, MinGrade: "B"}
	result, err := a.Check(context.Background(), newBlockWithImage(t, []string{"pytest", "web_simple", "plausibility"}), nil, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestSimpleAgent_NoImageURLFails(t *testing.T) {
	pb, err := protoblock.New("x", "m", "b", []string{"a"}, nil, []string{"pytest", "web_simple", "plausibility"}, nil)
	require.NoError(t, err)
	a := &SimpleAgent{Capturer: fakeCapturer{}, Vision: fakeVision{}}
	result, _ := a.Check(context.Background(), pb, nil, "")
	assert.False(t, result.Success)
	assert.Equal(t, "web_simple_no_target", result.FailureType)
}

func TestCompareAgent_CapturesBeforeThenChecks(t *testing.T) {
	a := &CompareAgent{Capturer: fakeCapturer{png: []byte{2}}, Vision: fakeVision{content: "GRADE: A\ngreat"}, MinGrade: "B"}
	pb := newBlockWithImage(t, []string{"pytest", "web_compare", "plausibility"})

	require.NoError(t, a.CaptureBeforeState(context.Background(), pb))
	assert.NotNil(t, a.before.get())

	result, err := a.Check(context.Background(), pb, nil, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestReferenceAgent_RequiresGradeA(t *testing.T) {
	a := &ReferenceAgent{Capturer: fakeCapturer{png: []byte{3}}, Vision: fakeVision{content: "GRADE: B\nclose"}}
	pb := newBlockWithImage(t, []string{"pytest", "web_reference", "plausibility"})

	result, err := a.Check(context.Background(), pb, nil, "")
	require.NoError(t, err)
	assert.False(t, result.Success, "web_reference must require grade A exactly")
}

func TestReferenceAgent_GradeAPasses(t *testing.T) {
	a := &ReferenceAgent{Capturer: fakeCapturer{png: []byte{3}}, Vision: fakeVision{content: "GRADE: A\nmatches"}}
	pb := newBlockWithImage(t, []string{"pytest", "web_reference", "plausibility"})

	result, err := a.Check(context.Background(), pb, nil, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
}
