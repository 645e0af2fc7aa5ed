package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v2"

	"diabetesml/pkg/errs"
	"diabetesml/pkg/logging"
)

// Config is the settings tree read from config.yaml.
type Config struct {
	DataIngestion     DataIngestion     `yaml:"data_ingestion"`
	DataPreprocessing DataPreprocessing `yaml:"data_preprocessing"`
	ModelTraining     ModelTraining     `yaml:"model_training"`
	Server            Server            `yaml:"server"`
}

// DataIngestion describes where the raw CSV lives and how it is split.
type DataIngestion struct {
	Provider           string  `yaml:"provider"`
	BucketName         string  `yaml:"bucket_name"`
	BucketFileName     string  `yaml:"bucket_file_name"`
	TrainRatio         float64 `yaml:"train_ratio"`
	RandomState        int64   `yaml:"random_state"`
	AzureConnectionEnv string  `yaml:"azure_connection_env"`
}

type DataPreprocessing struct {
	NumericalColumns []string `yaml:"numerical_columns"`
	TargetColumn     string   `yaml:"target_column"`
}

// ModelTraining holds the randomized search settings.
type ModelTraining struct {
	NIter               int                  `yaml:"n_iter"`
	CV                  int                  `yaml:"cv"`
	Scoring             string               `yaml:"scoring"`
	RandomState         int64                `yaml:"random_state"`
	NJobs               int                  `yaml:"n_jobs"`
	ExperimentName      string               `yaml:"experiment_name"`
	RegisteredModelName string               `yaml:"registered_model_name"`
	ParamDistributions  map[string]ParamSpec `yaml:"param_distributions"`
}

// ParamSpec declares one sampled hyperparameter.
// Type is "randint" (Low, High), "uniform" (Loc, Scale) or "choice" (Values).
type ParamSpec struct {
	Type   string    `yaml:"type"`
	Low    float64   `yaml:"low"`
	High   float64   `yaml:"high"`
	Loc    float64   `yaml:"loc"`
	Scale  float64   `yaml:"scale"`
	Values []float64 `yaml:"values"`
}

type Server struct {
	Address string `yaml:"address"`
}

const (
	ProviderGCS   = "gcs"
	ProviderAzure = "azure"
	ProviderFile  = "file"
)

// DefaultParamDistributions is the boosted-tree search space used when the YAML omits one.
func DefaultParamDistributions() map[string]ParamSpec {
	return map[string]ParamSpec{
		"n_estimators":     {Type: "randint", Low: 100, High: 1000},
		"num_leaves":       {Type: "randint", Low: 20, High: 60},
		"max_depth":        {Type: "choice", Values: []float64{-1, 10, 20, 30}},
		"learning_rate":    {Type: "uniform", Loc: 0.01, Scale: 0.2},
		"colsample_bytree": {Type: "uniform", Loc: 0.6, Scale: 0.4},
		"subsample":        {Type: "uniform", Loc: 0.6, Scale: 0.4},
		"reg_alpha":        {Type: "uniform", Loc: 0, Scale: 1},
		"reg_lambda":       {Type: "uniform", Loc: 0, Scale: 1},
	}
}

// Load reads the configuration from the specified YAML file, fills defaults and validates it.
func Load(filepath string) (*Config, error) {
	if _, err := os.Stat(filepath); err != nil {
		logging.Log.Error("Error while reading YAML file")
		return nil, errs.New(errs.KindConfig, "File is not in the given path", err)
	}

	configFile, err := os.ReadFile(filepath)
	if err != nil {
		logging.Log.Error("Error while reading YAML file")
		return nil, errs.New(errs.KindConfig, "Failed to read YAML file", err)
	}

	var config Config
	if err := yaml.Unmarshal(configFile, &config); err != nil {
		logging.Log.Error("Error while reading YAML file")
		return nil, errs.New(errs.KindConfig, "Failed to read YAML file", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, errs.New(errs.KindConfig, "Invalid configuration", err)
	}

	logging.Log.WithField("path", filepath).Info("Successfully read the YAML file")
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.DataIngestion.Provider == "" {
		c.DataIngestion.Provider = ProviderGCS
	}
	if c.DataIngestion.RandomState == 0 {
		c.DataIngestion.RandomState = 42
	}
	if c.DataIngestion.AzureConnectionEnv == "" {
		c.DataIngestion.AzureConnectionEnv = "AZURE_STORAGE_CONNECTION_STRING"
	}

	mt := &c.ModelTraining
	if mt.NIter == 0 {
		mt.NIter = 50
	}
	if mt.CV == 0 {
		mt.CV = 5
	}
	if mt.Scoring == "" {
		mt.Scoring = "f1"
	}
	if mt.RandomState == 0 {
		mt.RandomState = 42
	}
	if mt.NJobs == 0 {
		mt.NJobs = -1
	}
	if mt.ExperimentName == "" {
		mt.ExperimentName = "Default"
	}
	if mt.RegisteredModelName == "" {
		mt.RegisteredModelName = "LightGBM_Diabetes_Classifier"
	}
	if len(mt.ParamDistributions) == 0 {
		mt.ParamDistributions = DefaultParamDistributions()
	}

	if c.Server.Address == "" {
		c.Server.Address = ":5000"
	}
}

// Validate reports the first setting that cannot drive the pipeline.
func (c *Config) Validate() error {
	di := c.DataIngestion
	switch di.Provider {
	case ProviderGCS, ProviderAzure, ProviderFile:
	default:
		return fmt.Errorf("data_ingestion.provider %q is not one of gcs, azure, file", di.Provider)
	}
	if di.BucketName == "" {
		return errors.New("data_ingestion.bucket_name is required")
	}
	if di.BucketFileName == "" {
		return errors.New("data_ingestion.bucket_file_name is required")
	}
	if di.TrainRatio <= 0 || di.TrainRatio >= 1 {
		return fmt.Errorf("data_ingestion.train_ratio must be in (0, 1), got %v", di.TrainRatio)
	}

	dp := c.DataPreprocessing
	if dp.TargetColumn == "" {
		return errors.New("data_preprocessing.target_column is required")
	}
	if len(dp.NumericalColumns) == 0 {
		return errors.New("data_preprocessing.numerical_columns must not be empty")
	}
	for _, col := range dp.NumericalColumns {
		if col == dp.TargetColumn {
			return fmt.Errorf("data_preprocessing.numerical_columns must not contain the target %q", col)
		}
	}

	mt := c.ModelTraining
	if mt.NIter < 1 {
		return fmt.Errorf("model_training.n_iter must be positive, got %d", mt.NIter)
	}
	if mt.CV < 2 {
		return fmt.Errorf("model_training.cv must be at least 2, got %d", mt.CV)
	}
	for name, spec := range mt.ParamDistributions {
		switch spec.Type {
		case "randint":
			if spec.Low != math.Trunc(spec.Low) || spec.High != math.Trunc(spec.High) {
				return fmt.Errorf("model_training.param_distributions.%s: randint bounds must be integers", name)
			}
			if spec.High <= spec.Low {
				return fmt.Errorf("model_training.param_distributions.%s: high must exceed low", name)
			}
		case "uniform":
			if spec.Scale < 0 {
				return fmt.Errorf("model_training.param_distributions.%s: scale must not be negative", name)
			}
		case "choice":
			if len(spec.Values) == 0 {
				return fmt.Errorf("model_training.param_distributions.%s: values must not be empty", name)
			}
		default:
			return fmt.Errorf("model_training.param_distributions.%s: unknown type %q", name, spec.Type)
		}
	}
	return nil
}
