package classifier

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed artifacts/*.yaml
var defaultArtifacts embed.FS

// Artifacts names the four model resources inside a directory.
type Artifacts struct {
	RandomForest string `yaml:"rf"`
	Boosted      string `yaml:"xgb"`
	Scaler       string `yaml:"scaler"`
	Labels       string `yaml:"labels"`
}

// DefaultArtifacts are the file names shipped with the service.
func DefaultArtifacts() Artifacts {
	return Artifacts{
		RandomForest: "rf_model.yaml",
		Boosted:      "xgb_model.yaml",
		Scaler:       "scaler.yaml",
		Labels:       "labels.yaml",
	}
}

// ArtifactError reports a resource that could not be loaded.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("load artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// LoadDir loads an ensemble from a directory on disk.
func LoadDir(ctx context.Context, dir string, names Artifacts) (*Ensemble, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, &ArtifactError{Path: dir, Err: err}
	}
	return Load(ctx, os.DirFS(dir), names)
}

// LoadDefault loads the ensemble embedded in the binary.
func LoadDefault(ctx context.Context) (*Ensemble, error) {
	sub, err := fs.Sub(defaultArtifacts, "artifacts")
	if err != nil {
		return nil, err
	}
	return Load(ctx, sub, DefaultArtifacts())
}

// Load reads the scaler, label decoder and both models from fsys. Any failure
// is returned as an *ArtifactError; partially loaded models are released.
func Load(ctx context.Context, fsys fs.FS, names Artifacts) (*Ensemble, error) {
	var scaler Scaler
	if err := readYAML(fsys, names.Scaler, &scaler); err != nil {
		return nil, err
	}
	if err := scaler.validate(); err != nil {
		return nil, &ArtifactError{Path: names.Scaler, Err: err}
	}

	var decoder LabelDecoder
	if err := readYAML(fsys, names.Labels, &decoder); err != nil {
		return nil, err
	}
	if len(decoder.Classes) == 0 {
		return nil, &ArtifactError{Path: names.Labels, Err: fmt.Errorf("no classes")}
	}

	rf, err := loadModel(ctx, fsys, "rf", names.RandomForest)
	if err != nil {
		return nil, err
	}
	xgb, err := loadModel(ctx, fsys, "xgb", names.Boosted)
	if err != nil {
		return nil, errors.Join(err, closeModel(ctx, rf))
	}

	return NewEnsemble(&scaler, &decoder, rf, xgb)
}

func loadModel(ctx context.Context, fsys fs.FS, name, file string) (Model, error) {
	switch strings.ToLower(path.Ext(file)) {
	case ".wasm":
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, &ArtifactError{Path: file, Err: err}
		}
		m, err := NewWasmModel(ctx, name, data)
		if err != nil {
			return nil, &ArtifactError{Path: file, Err: err}
		}
		return m, nil
	case ".yaml", ".yml", ".json":
		var t TreeEnsemble
		if err := readYAML(fsys, file, &t); err != nil {
			return nil, err
		}
		if t.ModelName == "" {
			t.ModelName = name
		}
		if err := t.validate(); err != nil {
			return nil, &ArtifactError{Path: file, Err: err}
		}
		return &t, nil
	default:
		return nil, &ArtifactError{Path: file, Err: fmt.Errorf("unsupported model format")}
	}
}

func readYAML(fsys fs.FS, file string, v any) error {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return &ArtifactError{Path: file, Err: err}
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return &ArtifactError{Path: file, Err: err}
	}
	return nil
}
