package train

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molnet/pkg/data"
	"molnet/pkg/hyper"
	"molnet/pkg/model"
	"molnet/pkg/registry"
)

const gcnDoc = `{
	"model": {
		"class_name": "GCN",
		"config": {
			"name": "GCN",
			"inputs": [
				{"shape": [null, 3], "name": "node_attributes", "dtype": "float32", "ragged": true},
				{"shape": [null, 2], "name": "edge_indices", "dtype": "int64", "ragged": true}
			],
			"depth": 2,
			"dropout": 0.0,
			"gcn_args": {"units": 8, "activation": "relu", "pooling_method": "mean"},
			"output_embedding": "graph",
			"output_mlp": {"units": [4, 1], "activation": ["relu", "linear"]}
		}
	},
	"training": {
		"fit": {
			"batch_size": 2,
			"epochs": 2,
			"validation_freq": 1,
			"callbacks": [
				{"class_name": "LinearLearningRateScheduler", "config": {
					"learning_rate_start": 0.01, "learning_rate_stop": 0.0001,
					"epo_min": 1, "epo": 2
				}}
			]
		},
		"compile": {
			"optimizer": {"class_name": "Adam", "config": {"lr": 0.01}},
			"loss": "mean_squared_error",
			"metrics": ["mean_absolute_error", "root_mean_squared_error"]
		},
		"cross_validation": {"class_name": "KFold", "config": {
			"n_splits": 2, "random_state": 1, "shuffle": true
		}},
		"scaler": {"class_name": "StandardScaler", "config": {
			"with_mean": true, "with_std": true, "copy": true
		}}
	},
	"data": {
		"dataset": {
			"class_name": "GraphFileDataset",
			"config": {"file_path": "esol_tiny.jsonl"},
			"methods": []
		},
		"data_unit": "mol/L"
	},
	"info": {"postfix": "", "postfix_file": "_run0", "version": "2.0.3"}
}`

func newTestRegistry() *registry.Registry {
	r := registry.New()
	model.Register(r)
	data.Register(r)
	Register(r)
	return r
}

func TestRunKFold(t *testing.T) {
	reg := newTestRegistry()
	cfg, err := hyper.Load(strings.NewReader(gcnDoc), reg)
	require.NoError(t, err)

	out := t.TempDir()
	result, err := Run(reg, cfg, Options{DataDir: "testdata", OutputDir: out, Seed: 7})
	require.NoError(t, err)

	require.Len(t, result.Folds, 2)
	for _, fold := range result.Folds {
		assert.Len(t, fold.History, 2)
		assert.Contains(t, fold.Final, "mean_absolute_error")
		assert.Contains(t, fold.Final, "root_mean_squared_error")
	}
	assert.Contains(t, result.Metrics, "mean_absolute_error")

	require.NotEmpty(t, result.SummaryPath)
	raw, err := ioutil.ReadFile(result.SummaryPath)
	require.NoError(t, err)
	var summary Result
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, "GCN", summary.Model)
	assert.Equal(t, "GraphFileDataset", summary.Dataset)
	assert.Equal(t, "mol/L", summary.DataUnit)

	assert.True(t, strings.HasSuffix(result.SummaryPath, "summary_run0.json"))
	_, err = os.Stat(result.SummaryPath)
	assert.NoError(t, err)
}

func TestRunHoldoutWithoutCrossValidation(t *testing.T) {
	reg := newTestRegistry()
	cfg, err := hyper.Load(strings.NewReader(gcnDoc), reg)
	require.NoError(t, err)
	cfg.Training.CrossValidation = nil

	result, err := Run(reg, cfg, Options{DataDir: "testdata", Seed: 7})
	require.NoError(t, err)

	require.Len(t, result.Folds, 1)
	assert.Empty(t, result.SummaryPath)
}

func TestRunRejectsOutputTargetMismatch(t *testing.T) {
	reg := newTestRegistry()
	cfg, err := hyper.Load(strings.NewReader(gcnDoc), reg)
	require.NoError(t, err)
	cfg.Model.Config.OutputMLP.Units = []int{4, 2}

	_, err = Run(reg, cfg, Options{DataDir: "testdata"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outputs 2 values")
}

func TestRunRejectsTooManySplits(t *testing.T) {
	reg := newTestRegistry()
	cfg, err := hyper.Load(strings.NewReader(gcnDoc), reg)
	require.NoError(t, err)
	cfg.Training.CrossValidation.Config.NSplits = 10

	_, err = Run(reg, cfg, Options{DataDir: "testdata"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10 cross-validation splits")
}

func TestRunWithRenamedNodeProperty(t *testing.T) {
	doc := strings.Replace(gcnDoc,
		`{"shape": [null, 3], "name": "node_attributes", "dtype": "float32", "ragged": true}`,
		`{"shape": [null, 1], "name": "node_labels", "dtype": "float32", "ragged": true}`, 1)
	doc = strings.Replace(doc, `"methods": []`,
		`"methods": [{"set_attributes": {"nodes": "node_labels"}}]`, 1)

	reg := newTestRegistry()
	cfg, err := hyper.Load(strings.NewReader(doc), reg)
	require.NoError(t, err)

	result, err := Run(reg, cfg, Options{DataDir: "testdata", Seed: 7})
	require.NoError(t, err)
	assert.Len(t, result.Folds, 2)
}

func TestRunWithNestedLearningRateSchedule(t *testing.T) {
	doc := strings.Replace(gcnDoc,
		`"config": {"lr": 0.01}`,
		`"config": {"lr": {"class_name": "ExponentialDecay", "config": {
			"initial_learning_rate": 0.01, "decay_steps": 2, "decay_rate": 0.5
		}}}`, 1)

	reg := newTestRegistry()
	cfg, err := hyper.Load(strings.NewReader(doc), reg)
	require.NoError(t, err)

	result, err := Run(reg, cfg, Options{DataDir: "testdata", Seed: 7})
	require.NoError(t, err)
	assert.Len(t, result.Folds, 2)
}
