package iris_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridio/iriscore/internal/iris"
	"github.com/veridio/iriscore/internal/testutil"
)

// segmentEye renders an eye, runs it through preprocessing and
// segmentation, and returns everything the scorer needs.
func segmentEye(t *testing.T, p testutil.EyeParams) (*iris.Image, iris.Segmentation, *iris.Image) {
	t.Helper()
	pre, _ := iris.Preprocess(testutil.RenderEye(p))
	seg, err := iris.Segment(pre)
	require.NoError(t, err)
	strip := iris.Normalize(pre, seg)
	return pre, seg, strip
}

func TestScoreFrameWellFormedEye(t *testing.T) {
	t.Parallel()

	pre, seg, strip := segmentEye(t, testutil.DefaultEye(1))
	defer pre.Release()
	defer strip.Release()

	q := iris.ScoreFrame(pre, seg, strip)
	assert.Greater(t, q.Composite, 60.0)
	assert.Greater(t, q.Sharpness, 30.0)
	assert.Greater(t, q.Occlusion, 70.0)
	assert.Greater(t, q.Centering, 80.0)
	assert.Greater(t, q.LaplacianVar, 50.0)
}

func TestScoreFrameSpecularGlintLowersSpecularScore(t *testing.T) {
	t.Parallel()

	clean := testutil.DefaultEye(2)
	glinted := clean
	glinted.Specular = true

	preA, segA, stripA := segmentEye(t, clean)
	defer preA.Release()
	defer stripA.Release()
	preB, segB, stripB := segmentEye(t, glinted)
	defer preB.Release()
	defer stripB.Release()

	qa := iris.ScoreFrame(preA, segA, stripA)
	qb := iris.ScoreFrame(preB, segB, stripB)
	assert.LessOrEqual(t, qb.Specular, qa.Specular)
}

func TestScoreFrameOffCenterLowersCentering(t *testing.T) {
	t.Parallel()

	centered := testutil.DefaultEye(3)
	offset := centered
	offset.CenterX = 420
	offset.CenterY = 300

	preA, segA, stripA := segmentEye(t, centered)
	defer preA.Release()
	defer stripA.Release()
	preB, segB, stripB := segmentEye(t, offset)
	defer preB.Release()
	defer stripB.Release()

	qa := iris.ScoreFrame(preA, segA, stripA)
	qb := iris.ScoreFrame(preB, segB, stripB)
	assert.Less(t, qb.Centering, qa.Centering)
}

func TestScoreFrameCompositeWithinRange(t *testing.T) {
	t.Parallel()

	pre, seg, strip := segmentEye(t, testutil.DefaultEye(4))
	defer pre.Release()
	defer strip.Release()

	q := iris.ScoreFrame(pre, seg, strip)
	for name, v := range map[string]float64{
		"sharpness":  q.Sharpness,
		"occlusion":  q.Occlusion,
		"specular":   q.Specular,
		"centering":  q.Centering,
		"resolution": q.Resolution,
		"composite":  q.Composite,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 100.0, name)
	}
}
