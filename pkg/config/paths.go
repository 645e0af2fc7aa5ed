package config

import "path/filepath"

// ConfigPath is the configuration file every command reads.
const ConfigPath = "config/config.yaml"

// Paths resolves artifact locations under a project root.
type Paths struct {
	Root string

	RawDir    string
	RawFile   string
	TrainFile string
	TestFile  string

	ProcessedDir   string
	ProcessedTrain string
	ProcessedTest  string
	Scaler         string

	ModelOutput string

	Config   string
	LogsDir  string
	Tracking string
}

// NewPaths lays out the artifact tree below root.
func NewPaths(root string) Paths {
	raw := filepath.Join(root, "artifacts", "raw")
	processed := filepath.Join(root, "artifacts", "processed")
	return Paths{
		Root:           root,
		RawDir:         raw,
		RawFile:        filepath.Join(raw, "raw_data.csv"),
		TrainFile:      filepath.Join(raw, "train_data.csv"),
		TestFile:       filepath.Join(raw, "test_data.csv"),
		ProcessedDir:   processed,
		ProcessedTrain: filepath.Join(processed, "processed_train.csv"),
		ProcessedTest:  filepath.Join(processed, "processed_test.csv"),
		Scaler:         filepath.Join(processed, "scaler.gob"),
		ModelOutput:    filepath.Join(root, "artifacts", "models", "lgbm_model.gob"),
		Config:         filepath.Join(root, ConfigPath),
		LogsDir:        filepath.Join(root, "logs"),
		Tracking:       filepath.Join(root, "mlruns"),
	}
}
