package classifier

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// PredictExport is the function a WASM model must export. It takes the six
// scaled features as f64 and returns the class id as f64 or i32.
const PredictExport = "predict"

// WasmModel runs a model compiled to WebAssembly.
type WasmModel struct {
	name    string
	runtime wazero.Runtime
	module  api.Module
	predict api.Function
	i32     bool
	mu      sync.Mutex
}

// NewWasmModel compiles and instantiates wasmBytes. Reactor modules exporting
// _initialize are initialised; the predict export signature is checked up
// front so a bad artifact fails at load time.
func NewWasmModel(ctx context.Context, name string, wasmBytes []byte) (*WasmModel, error) {
	r := wazero.NewRuntime(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("failed to compile wasm module: %w", err)
	}

	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize").
		WithStderr(os.Stderr)
	mod, err := r.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasm module: %w", err)
	}

	fn := mod.ExportedFunction(PredictExport)
	if fn == nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%s not exported", PredictExport)
	}

	def := fn.Definition()
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) != FeatureCount {
		r.Close(ctx)
		return nil, fmt.Errorf("%s takes %d params, want %d", PredictExport, len(params), FeatureCount)
	}
	for _, p := range params {
		if p != api.ValueTypeF64 {
			r.Close(ctx)
			return nil, fmt.Errorf("%s params must be f64", PredictExport)
		}
	}
	if len(results) != 1 || (results[0] != api.ValueTypeF64 && results[0] != api.ValueTypeI32) {
		r.Close(ctx)
		return nil, fmt.Errorf("%s must return a single f64 or i32", PredictExport)
	}

	return &WasmModel{
		name:    name,
		runtime: r,
		module:  mod,
		predict: fn,
		i32:     results[0] == api.ValueTypeI32,
	}, nil
}

func (m *WasmModel) Name() string { return m.name }

// Predict calls the predict export. Calls are serialised because the module
// instance is not safe for concurrent use.
func (m *WasmModel) Predict(ctx context.Context, features []float64) (float64, error) {
	if len(features) != FeatureCount {
		return 0, ErrFeatureCount
	}

	args := make([]uint64, len(features))
	for i, f := range features {
		args[i] = api.EncodeF64(f)
	}

	m.mu.Lock()
	results, err := m.predict.Call(ctx, args...)
	m.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("failed to call %s: %w", PredictExport, err)
	}

	if m.i32 {
		return float64(api.DecodeI32(results[0])), nil
	}
	return api.DecodeF64(results[0]), nil
}

// Close tears down the runtime.
func (m *WasmModel) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}
