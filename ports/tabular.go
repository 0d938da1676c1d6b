package ports

import (
	"context"

	"sheetprompt/domain/dataset"
)

// DatasetLoader reads a tabular file into memory
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*dataset.Dataset, error)
}

// DatasetWriter serializes a dataset to a tabular file, replacing any
// existing file at path
type DatasetWriter interface {
	Write(ctx context.Context, ds *dataset.Dataset, path string) error
}
