package application

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	logger "github.com/sirupsen/logrus"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

// EnrichFunc produces the supplementary values for one parsed row.
type EnrichFunc func(ctx context.Context, row map[string]string) domain.Enrichment

// Progress receives per-row completion signals during a transform.
type Progress interface {
	Add(n int)
	Finish()
}

type noopProgress struct{}

func (noopProgress) Add(int) {}
func (noopProgress) Finish() {}

// barProgress adapts schollz/progressbar to the Progress interface.
type barProgress struct{ bar *progressbar.ProgressBar }

func (p barProgress) Add(n int) { _ = p.bar.Add(n) }
func (p barProgress) Finish()   { _ = p.bar.Finish() }

// NewProgressBar builds the operator-visible row counter. totalRows may be -1
// when the total is unknown.
func NewProgressBar(totalRows int, description string) Progress {
	bar := progressbar.NewOptions(totalRows,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return barProgress{bar: bar}
}

// TransformOptions tune a single CSV transform.
type TransformOptions struct {
	// Progress receives one Add(1) per enriched row; nil disables reporting.
	Progress Progress
}

// ErrEmptyCSV is returned when the input has no header row.
var ErrEmptyCSV = errors.New("csv input is empty")

// TransformCSV streams the report row by row, appends the three enrichment
// columns to the header, and writes each row back with the derived values
// appended. Original columns keep their order and content; output row count
// equals input row count. The whole report is never held in memory.
func TransformCSV(ctx context.Context, r io.Reader, w io.Writer, enrich EnrichFunc, opts TransformOptions) (int, error) {
	progress := opts.Progress
	if progress == nil {
		progress = noopProgress{}
	}

	reader := csv.NewReader(r)
	writer := csv.NewWriter(w)

	header, err := reader.Read()
	if err == io.EOF {
		return 0, ErrEmptyCSV
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	outHeader := append(append([]string{}, header...), domain.EnrichmentColumns...)
	if writeErr := writer.Write(outHeader); writeErr != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", writeErr)
	}

	rows := 0
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rows, ctxErr
		}

		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return rows, fmt.Errorf("failed to read csv row %d: %w", rows+1, readErr)
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}

		enrichment := enrich(ctx, row)
		out := append(append([]string{}, record...),
			enrichment.FilePathsValue(),
			enrichment.HowToFix,
			enrichment.ReferencesValue(),
		)
		if writeErr := writer.Write(out); writeErr != nil {
			return rows, fmt.Errorf("failed to write csv row %d: %w", rows+1, writeErr)
		}

		rows++
		progress.Add(1)
		if rows%100 == 0 {
			logger.Debugf("Enriched %d rows so far", rows)
		}
	}

	writer.Flush()
	if flushErr := writer.Error(); flushErr != nil {
		return rows, fmt.Errorf("failed to flush csv output: %w", flushErr)
	}
	progress.Finish()
	return rows, nil
}

// CountRows counts the data rows (excluding the header) of a CSV stream.
// The driver uses it to give the progress bar a real total.
func CountRows(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows := -1 // account for the header
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count csv rows: %w", err)
		}
		rows++
	}
	if rows < 0 {
		return 0, nil
	}
	return rows, nil
}
