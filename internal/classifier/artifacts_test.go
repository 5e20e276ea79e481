package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault_ClassifiesTypicalSamples(t *testing.T) {
	ctx := context.Background()
	e, err := LoadDefault(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	assert.Equal(t, []string{"rf", "xgb"}, e.Models())

	tests := []struct {
		name     string
		features []float64
		label    string
	}{
		{"resting", []float64{75, 16, 98, 50, 1.5, 2}, LabelNormal},
		{"stressed", []float64{130, 24, 93, 20, 6.5, 7}, LabelHigh},
		{"relaxed", []float64{60, 12, 99, 90, 60.0 / 90.0, 1}, LabelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Classify(ctx, tt.features)
			require.NoError(t, err)
			assert.Equal(t, tt.label, res.Label)
			assert.Equal(t, Advisory(tt.label), res.Warning)
		})
	}
}

func TestLoad_MissingArtifactIsFatal(t *testing.T) {
	fsys := fstest.MapFS{
		"scaler.yaml": {Data: []byte("mean: [0,0,0,0,0,0]\nscale: [1,1,1,1,1,1]\n")},
		"labels.yaml": {Data: []byte("classes: [High, Low, Normal]\n")},
	}

	_, err := Load(context.Background(), fsys, DefaultArtifacts())
	require.Error(t, err)

	var artErr *ArtifactError
	require.True(t, errors.As(err, &artErr))
	assert.Equal(t, "rf_model.yaml", artErr.Path)
}

func TestLoad_RejectsMalformedArtifacts(t *testing.T) {
	good := fstest.MapFS{
		"scaler.yaml":    {Data: []byte("mean: [0,0,0,0,0,0]\nscale: [1,1,1,1,1,1]\n")},
		"labels.yaml":    {Data: []byte("classes: [High, Low, Normal]\n")},
		"rf_model.yaml":  {Data: []byte("trees:\n  - value: 1\n")},
		"xgb_model.yaml": {Data: []byte("aggregate: mean\ntrees:\n  - value: 2\n")},
	}

	tests := []struct {
		name string
		file string
		data string
	}{
		{"short scaler", "scaler.yaml", "mean: [0]\nscale: [1]\n"},
		{"empty labels", "labels.yaml", "classes: []\n"},
		{"bad yaml", "rf_model.yaml", "trees: [\n"},
		{"bad tree", "xgb_model.yaml", "trees:\n  - feature: 12\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for k, v := range good {
				fsys[k] = v
			}
			fsys[tt.file] = &fstest.MapFile{Data: []byte(tt.data)}

			_, err := Load(context.Background(), fsys, DefaultArtifacts())
			var artErr *ArtifactError
			require.True(t, errors.As(err, &artErr), "expected ArtifactError, got %v", err)
			assert.Equal(t, tt.file, artErr.Path)
		})
	}

	e, err := Load(context.Background(), good, DefaultArtifacts())
	require.NoError(t, err)
	res, err := e.Classify(context.Background(), make([]float64, FeatureCount))
	require.NoError(t, err)
	assert.Equal(t, LabelNormal, res.Label) // (1 + 2) / 2 rounds to 2
}

func TestLoadDir_WasmModels(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	write("scaler.yaml", []byte("mean: [0,0,0,0,0,0]\nscale: [1,1,1,1,1,1]\n"))
	write("labels.yaml", []byte("classes: [High, Low, Normal]\n"))
	write("rf.wasm", constI32Module(1))
	write("xgb.wasm", constI32Module(1))

	ctx := context.Background()
	e, err := LoadDir(ctx, dir, Artifacts{
		RandomForest: "rf.wasm",
		Boosted:      "xgb.wasm",
		Scaler:       "scaler.yaml",
		Labels:       "labels.yaml",
	})
	require.NoError(t, err)
	defer e.Close(ctx)

	res, err := e.Classify(ctx, make([]float64, FeatureCount))
	require.NoError(t, err)
	assert.Equal(t, LabelLow, res.Label)
}

func TestLoadDir_SecondModelMissingReleasesFirst(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	write("scaler.yaml", []byte("mean: [0,0,0,0,0,0]\nscale: [1,1,1,1,1,1]\n"))
	write("labels.yaml", []byte("classes: [High, Low, Normal]\n"))
	write("rf.wasm", constI32Module(1))

	_, err := LoadDir(context.Background(), dir, Artifacts{
		RandomForest: "rf.wasm",
		Boosted:      "xgb.wasm",
		Scaler:       "scaler.yaml",
		Labels:       "labels.yaml",
	})
	var artErr *ArtifactError
	require.True(t, errors.As(err, &artErr))
	assert.Equal(t, "xgb.wasm", artErr.Path)
}

type closingModel struct {
	err error
}

func (m *closingModel) Name() string { return "stub" }

func (m *closingModel) Predict(ctx context.Context, x []float64) (float64, error) { return 0, nil }

func (m *closingModel) Close(ctx context.Context) error { return m.err }

func TestCloseModel(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, closeModel(ctx, &closingModel{}))

	boom := errors.New("runtime busy")
	err := closeModel(ctx, &closingModel{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stub")

	// a load failure keeps the close failure alongside it
	loadErr := &ArtifactError{Path: "xgb.wasm", Err: os.ErrNotExist}
	joined := errors.Join(loadErr, closeModel(ctx, &closingModel{err: boom}))
	assert.ErrorIs(t, joined, boom)
	assert.ErrorIs(t, joined, os.ErrNotExist)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"), DefaultArtifacts())
	var artErr *ArtifactError
	assert.True(t, errors.As(err, &artErr))
}
