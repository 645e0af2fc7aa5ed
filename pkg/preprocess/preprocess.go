// Package preprocess turns the raw train/test split into model-ready feature files.
package preprocess

import (
	"context"

	"github.com/sirupsen/logrus"

	"diabetesml/pkg/config"
	"diabetesml/pkg/data"
	"diabetesml/pkg/dataprep"
	"diabetesml/pkg/errs"
	"diabetesml/pkg/logging"
	"diabetesml/pkg/pipeline"
	"diabetesml/pkg/stats"
)

// Processor engineers features, imputes and scales the numerical columns.
// Everything is fit on the train split and only applied to the test split.
type Processor struct {
	cfg    config.DataPreprocessing
	paths  config.Paths
	schema pipeline.Schema
}

func New(cfg *config.Config, paths config.Paths) *Processor {
	schema := pipeline.DiabetesSchema()
	schema.Target = cfg.DataPreprocessing.TargetColumn
	logging.Log.Info("DataPreprocessor initialized")
	return &Processor{cfg: cfg.DataPreprocessing, paths: paths, schema: schema}
}

func (p *Processor) Name() string { return "data_preprocessing" }

func (p *Processor) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Process()
}

// Process reads the raw splits and writes the processed splits and the fitted scaler.
func (p *Processor) Process() error {
	logging.Log.Info("Starting full data preprocessing pipeline")

	train, err := p.load(p.paths.TrainFile)
	if err != nil {
		return err
	}
	test, err := p.load(p.paths.TestFile)
	if err != nil {
		return err
	}
	logging.Log.Info("Raw train and test data loaded successfully")

	if train, err = dataprep.AddInteractions(train, p.schema.Interactions); err != nil {
		return p.fail(errs.KindData, "Failed to create features", err)
	}
	if test, err = dataprep.AddInteractions(test, p.schema.Interactions); err != nil {
		return p.fail(errs.KindData, "Failed to create features", err)
	}
	logging.Log.WithField("features", dataprep.InteractionNames(p.schema.Interactions)).Info("Created new features")

	xTrain, yTrain, err := train.SplitTarget(p.cfg.TargetColumn)
	if err != nil {
		return p.fail(errs.KindData, "Failed to separate target", err)
	}
	xTest, yTest, err := test.SplitTarget(p.cfg.TargetColumn)
	if err != nil {
		return p.fail(errs.KindData, "Failed to separate target", err)
	}

	imputer := dataprep.NewMeanImputer(p.cfg.NumericalColumns)
	scaler := stats.NewRobustScaler(p.cfg.NumericalColumns)
	steps := pipeline.NewPipeline(imputer, scaler)

	if xTrain, err = steps.FitTransform(xTrain); err != nil {
		return p.fail(errs.KindTraining, "Failed to fit imputer and scaler", err)
	}
	if xTest, err = steps.Transform(xTest); err != nil {
		return p.fail(errs.KindTraining, "Failed to transform test data", err)
	}
	logging.Log.Info("Missing values handled and data scaled using RobustScaler")

	if err := stats.SaveScaler(p.paths.Scaler, scaler); err != nil {
		return p.fail(errs.KindData, "Failed to save scaler", err)
	}
	logging.Log.WithField("path", p.paths.Scaler).Info("Fitted scaler saved")

	if err := p.save(xTrain, yTrain, p.paths.ProcessedTrain); err != nil {
		return err
	}
	if err := p.save(xTest, yTest, p.paths.ProcessedTest); err != nil {
		return err
	}
	logging.Log.Info("Data preprocessing pipeline completed successfully")
	return nil
}

func (p *Processor) load(path string) (*data.Frame, error) {
	f, err := data.ReadCSV(path)
	if err != nil {
		return nil, p.fail(errs.KindData, "Failed to load data", err)
	}
	f, _ = dataprep.DropIndexColumns(f)
	if err := p.schema.Validate(f.Columns, true); err != nil {
		return nil, p.fail(errs.KindData, "Unexpected data layout in "+path, err)
	}
	return f, nil
}

func (p *Processor) save(x *data.Frame, y []float64, path string) error {
	out, err := data.Join(x, p.cfg.TargetColumn, y)
	if err != nil {
		return p.fail(errs.KindData, "Failed to save processed data", err)
	}
	if err := data.WriteCSV(path, out); err != nil {
		return p.fail(errs.KindData, "Failed to save processed data", err)
	}
	logging.Log.WithFields(logrus.Fields{"path": path, "rows": out.Len()}).Info("Data saved successfully")
	return nil
}

func (p *Processor) fail(kind errs.Kind, msg string, err error) error {
	logging.Log.WithError(err).Error("An unexpected error occurred in the preprocessing pipeline")
	return errs.New(kind, msg, err)
}
