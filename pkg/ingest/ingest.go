// Package ingest fetches the raw dataset and splits it into train and test files.
package ingest

import (
	"context"

	"github.com/sirupsen/logrus"

	"diabetesml/pkg/config"
	"diabetesml/pkg/data"
	"diabetesml/pkg/errs"
	"diabetesml/pkg/loader"
	"diabetesml/pkg/logging"
	"diabetesml/pkg/storage"
)

// Ingestion downloads the configured object and writes the train/test split.
type Ingestion struct {
	cfg   config.DataIngestion
	paths config.Paths

	// Downloader overrides the provider picked from the configuration.
	Downloader storage.Downloader
}

func New(cfg *config.Config, paths config.Paths) *Ingestion {
	logging.Log.WithFields(logrus.Fields{
		"bucket": cfg.DataIngestion.BucketName,
		"file":   cfg.DataIngestion.BucketFileName,
	}).Info("Data Ingestion started")
	return &Ingestion{cfg: cfg.DataIngestion, paths: paths}
}

func (in *Ingestion) Name() string { return "data_ingestion" }

// DownloadData copies the bucket object to the raw data file.
func (in *Ingestion) DownloadData(ctx context.Context) error {
	d := in.Downloader
	if d == nil {
		var err error
		d, err = storage.New(ctx, in.cfg)
		if err != nil {
			logging.Log.Error("Error while creating the storage client")
			return errs.New(errs.KindFetch, "Failed to create storage client", err)
		}
		defer d.Close()
	}

	if err := d.Download(ctx, in.cfg.BucketName, in.cfg.BucketFileName, in.paths.RawFile); err != nil {
		logging.Log.Error("Error while downloading data from bucket")
		return errs.New(errs.KindFetch, "Failed to download data from bucket", err)
	}
	logging.Log.WithFields(logrus.Fields{"bucket": in.cfg.BucketName, "dst": in.paths.RawFile}).Info("Data downloaded")
	return nil
}

// SplitData shuffles the raw rows with the configured seed and writes the train and test files.
// Raw values are copied verbatim and no index column is added.
func (in *Ingestion) SplitData() error {
	logging.Log.Info("Splitting data into train and test sets")
	header, rows, err := data.ReadRecords(in.paths.RawFile)
	if err != nil {
		logging.Log.Error("Error while splitting data into train and test sets")
		return errs.New(errs.KindData, "Failed to read raw data", err)
	}

	trainIdx, testIdx, err := loader.TrainTestSplit(len(rows), 1-in.cfg.TrainRatio, in.cfg.RandomState)
	if err != nil {
		logging.Log.Error("Error while splitting data into train and test sets")
		return errs.New(errs.KindData, "Failed to split data into train and test sets", err)
	}

	if err := data.WriteRecords(in.paths.TrainFile, header, pick(rows, trainIdx)); err != nil {
		return errs.New(errs.KindData, "Failed to write train data", err)
	}
	if err := data.WriteRecords(in.paths.TestFile, header, pick(rows, testIdx)); err != nil {
		return errs.New(errs.KindData, "Failed to write test data", err)
	}

	logging.Log.WithFields(logrus.Fields{
		"train":      in.paths.TrainFile,
		"test":       in.paths.TestFile,
		"train_rows": len(trainIdx),
		"test_rows":  len(testIdx),
	}).Info("Data split completed")
	return nil
}

func pick(rows [][]string, idx []int) [][]string {
	out := make([][]string, len(idx))
	for k, i := range idx {
		out[k] = rows[i]
	}
	return out
}

// Run downloads then splits.
func (in *Ingestion) Run(ctx context.Context) error {
	logging.Log.Info("Starting data ingestion process")
	defer logging.Log.Info("Data ingestion process finished")

	if err := in.DownloadData(ctx); err != nil {
		return err
	}
	if err := in.SplitData(); err != nil {
		return err
	}
	logging.Log.Info("Data ingestion process completed successfully")
	return nil
}
