// Package train fits the boosted-tree classifier on the processed data and records the run.
package train

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"diabetesml/pkg/config"
	"diabetesml/pkg/data"
	"diabetesml/pkg/dataprep"
	"diabetesml/pkg/errs"
	"diabetesml/pkg/logging"
	"diabetesml/pkg/model"
	"diabetesml/pkg/tracking"
)

// Trainer runs the randomized search, evaluates the winner and persists it.
type Trainer struct {
	cfg   *config.Config
	paths config.Paths
}

func New(cfg *config.Config, paths config.Paths) *Trainer {
	logging.Log.Info("ModelTraining initialized")
	return &Trainer{cfg: cfg, paths: paths}
}

func (t *Trainer) Name() string { return "model_training" }

// Dataset is the processed train/test data with 0/1 labels.
type Dataset struct {
	XTrain *data.Frame
	YTrain []int
	XTest  *data.Frame
	YTest  []int
}

// LoadProcessedData reads the processed splits, drops stray index columns, sanitizes the
// column names and separates the target.
func (t *Trainer) LoadProcessedData() (*Dataset, error) {
	target := dataprep.SanitizeName(t.cfg.DataPreprocessing.TargetColumn)
	load := func(path string) (*data.Frame, []int, error) {
		logging.Log.WithField("path", path).Info("Loading processed data")
		f, err := data.ReadCSV(path)
		if err != nil {
			return nil, nil, err
		}
		if out, dropped := dataprep.DropIndexColumns(f); dropped {
			logging.Log.Info("Dropped index column")
			f = out
		}
		f = dataprep.SanitizeColumns(f)
		x, y, err := f.SplitTarget(target)
		if err != nil {
			return nil, nil, err
		}
		labels, err := data.Labels(y)
		if err != nil {
			return nil, nil, err
		}
		return x, labels, nil
	}

	var ds Dataset
	var err error
	if ds.XTrain, ds.YTrain, err = load(t.paths.ProcessedTrain); err != nil {
		return nil, err
	}
	if ds.XTest, ds.YTest, err = load(t.paths.ProcessedTest); err != nil {
		return nil, err
	}
	if len(ds.XTrain.Columns) != len(ds.XTest.Columns) {
		return nil, fmt.Errorf("train has %d features, test has %d", len(ds.XTrain.Columns), len(ds.XTest.Columns))
	}
	if ds.XTest, err = ds.XTest.Select(ds.XTrain.Columns...); err != nil {
		return nil, err
	}
	logging.Log.Info("Processed data loaded and split successfully")
	return &ds, nil
}

// ScalePosWeight is the negative to positive class ratio of y.
func ScalePosWeight(y []int) (float64, error) {
	neg, pos := 0, 0
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, fmt.Errorf("training labels need both classes, got %d negative and %d positive", neg, pos)
	}
	return float64(neg) / float64(pos), nil
}

// Distributions converts the configured search space.
func Distributions(specs map[string]config.ParamSpec) (map[string]model.Distribution, error) {
	out := make(map[string]model.Distribution, len(specs))
	for name, s := range specs {
		switch s.Type {
		case "randint":
			low, high := int(s.Low), int(s.High)
			if high <= low {
				return nil, fmt.Errorf("parameter %s: randint needs high > low, got [%d, %d)", name, low, high)
			}
			out[name] = model.RandInt{Low: low, High: high}
		case "uniform":
			out[name] = model.Uniform{Loc: s.Loc, Scale: s.Scale}
		case "choice":
			out[name] = model.Choice{Values: append([]float64(nil), s.Values...)}
		default:
			return nil, fmt.Errorf("parameter %s: unknown distribution %q", name, s.Type)
		}
	}
	return out, nil
}

// TrainModel runs the randomized search on the train split.
func (t *Trainer) TrainModel(ctx context.Context, ds *Dataset) (*model.SearchResult, float64, error) {
	logging.Log.Info("Starting model training with randomized search")
	spw, err := ScalePosWeight(ds.YTrain)
	if err != nil {
		return nil, 0, err
	}
	logging.Log.Infof("Calculated scale_pos_weight for class imbalance: %.2f", spw)

	mt := t.cfg.ModelTraining
	dists, err := Distributions(mt.ParamDistributions)
	if err != nil {
		return nil, 0, err
	}
	base := model.DefaultParams()
	base.RandomState = mt.RandomState
	base.ScalePosWeight = spw

	search := &model.RandomizedSearch{
		Base:          base,
		Distributions: dists,
		NIter:         mt.NIter,
		CV:            mt.CV,
		Scoring:       mt.Scoring,
		RandomState:   mt.RandomState,
		NJobs:         mt.NJobs,
	}
	res, err := search.Fit(ctx, ds.XTrain.Rows, ds.YTrain, ds.XTrain.Columns)
	if err != nil {
		return nil, 0, err
	}
	logging.Log.WithField("best_params", res.Candidates[res.BestIndex].Sample).Info("Model training completed")
	return res, spw, nil
}

// EvaluateModel scores the model once on the test split.
func (t *Trainer) EvaluateModel(m model.Classifier, ds *Dataset) model.Report {
	logging.Log.Info("Evaluating the trained model on the test data")
	r := model.Evaluate(ds.YTest, m.PredictProba(ds.XTest.Rows))
	logging.Log.WithFields(logrus.Fields{
		"accuracy":  r.Accuracy,
		"precision": r.Precision,
		"recall":    r.Recall,
		"f1_score":  r.F1,
		"roc_auc":   r.ROCAUC,
	}).Info("Evaluation metrics")
	return r
}

// Run trains, evaluates and records one tracked run. The run is marked FAILED
// if any step returns an error.
func (t *Trainer) Run(ctx context.Context) (err error) {
	logging.Log.Info("Starting the model training pipeline run")
	mt := t.cfg.ModelTraining

	tracker, err := tracking.Open(t.paths.Tracking)
	if err != nil {
		return errs.New(errs.KindTraining, "Failed to open experiment tracker", err)
	}
	defer tracker.Close()

	run, err := tracker.StartRun(mt.ExperimentName)
	if err != nil {
		return errs.New(errs.KindTraining, "Failed to start tracking run", err)
	}
	defer func() {
		status := tracking.StatusFinished
		if err != nil {
			status = tracking.StatusFailed
			logging.Log.WithError(err).Error("An unexpected error occurred during the training run")
		}
		if endErr := run.End(status); endErr != nil {
			logging.Log.WithError(endErr).Warn("Failed to close tracking run")
		}
	}()
	if err := run.SetTag("PipelineStep", "ModelTraining"); err != nil {
		return errs.New(errs.KindTraining, "Failed to tag tracking run", err)
	}

	ds, err := t.LoadProcessedData()
	if err != nil {
		return errs.New(errs.KindData, "Failed to load processed data", err)
	}
	if err := run.LogParams(map[string]string{
		"training_data_path": t.paths.ProcessedTrain,
		"test_data_path":     t.paths.ProcessedTest,
	}); err != nil {
		return errs.New(errs.KindTraining, "Failed to log parameters", err)
	}

	res, spw, err := t.TrainModel(ctx, ds)
	if err != nil {
		return errs.New(errs.KindTraining, "Model training failed", err)
	}
	params := map[string]string{"scale_pos_weight": formatFloat(spw)}
	for k, v := range res.Candidates[res.BestIndex].Sample {
		params[k] = formatFloat(v)
	}
	if err := run.LogParams(params); err != nil {
		return errs.New(errs.KindTraining, "Failed to log parameters", err)
	}

	report := t.EvaluateModel(res.Best, ds)
	metrics := report.Map()
	metrics["best_cv_score"] = res.BestScore
	if err := run.LogMetrics(metrics); err != nil {
		return errs.New(errs.KindTraining, "Failed to log metrics", err)
	}

	rocPath := filepath.Join(run.ArtifactDir, "roc_curve.png")
	fpr, tpr, _ := model.ROCCurve(ds.YTest, res.Best.PredictProba(ds.XTest.Rows))
	if err := PlotROC(rocPath, fpr, tpr, report.ROCAUC); err != nil {
		// A single-class test split has no ROC curve; the run itself is still valid.
		logging.Log.WithError(err).Warn("Skipping ROC plot")
	}

	if err := res.Best.Save(t.paths.ModelOutput); err != nil {
		return errs.New(errs.KindTraining, "Failed to save model", err)
	}
	logging.Log.WithField("path", t.paths.ModelOutput).Info("Model artifact saved locally")

	logging.Log.Info("Logging model to the model registry")
	stored, err := run.LogArtifact(t.paths.ModelOutput, "model")
	if err != nil {
		return errs.New(errs.KindTraining, "Failed to log model artifact", err)
	}
	if _, err := run.RegisterModel(mt.RegisteredModelName, stored); err != nil {
		return errs.New(errs.KindTraining, "Failed to register model", err)
	}

	logging.Log.Info("Model training pipeline run completed successfully")
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
