package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	defaultBatchSize = 10000
	defaultWorkers   = 10
)

// CSV header names, matched case-insensitively.
const (
	colOrderID   = "order id"
	colProduct   = "product"
	colQuantity  = "quantity ordered"
	colPrice     = "price each"
	colOrderDate = "order date"
	colAddress   = "purchase address"
)

var requiredColumns = []string{colOrderID, colProduct, colQuantity, colPrice, colOrderDate, colAddress}

type LoadOptions struct {
	Workers      int
	BatchSize    int
	ShowProgress bool
	Logger       *slog.Logger
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// LoadCSV reads the order file, prepares every row and returns the dataset.
// Any malformed row aborts the load with a *MalformedInputError.
func LoadCSV(ctx context.Context, filename string, opts LoadOptions) (*Dataset, error) {
	opts = opts.withDefaults()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	opts.Logger.Info("processing CSV file", "filename", filename)

	var src io.Reader = file
	if opts.ShowProgress {
		if info, err := file.Stat(); err == nil {
			bar := progressbar.DefaultBytes(info.Size(), "loading orders")
			defer bar.Finish()
			src = io.TeeReader(file, bar)
		}
	}

	records, rows, err := readOrders(ctx, src)
	if err != nil {
		return nil, err
	}

	derived, err := prepareBatches(ctx, records, rows, opts)
	if err != nil {
		return nil, fmt.Errorf("prepare orders: %w", err)
	}

	ds := NewDataset(derived)
	ds.source = filename

	duration := time.Since(start)
	opts.Logger.Info("csv processing complete",
		"records", ds.Len(),
		"periods", len(ds.periods),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(ds.Len())/duration.Seconds()))

	return ds, nil
}

// readOrders parses the CSV into order records. rows[i] is the 1-based file
// line of records[i].
func readOrders(ctx context.Context, r io.Reader) ([]models.OrderRecord, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []models.OrderRecord
		rows    []int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, nil, &MalformedInputError{Row: pe.Line, Field: "row", Err: pe.Err}
			}
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		rec, err := parseOrder(fields, cols, line)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
		rows = append(rows, line)
	}

	return records, rows, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MalformedInputError{
			Row:   1,
			Field: "header",
			Value: strings.Join(header, ","),
			Err:   fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")),
		}
	}
	return cols, nil
}

func parseOrder(fields []string, cols map[string]int, line int) (models.OrderRecord, error) {
	get := func(col string) (string, error) {
		i := cols[col]
		if i >= len(fields) {
			return "", &MalformedInputError{Row: line, Field: col, Err: fmt.Errorf("missing column")}
		}
		return strings.TrimSpace(fields[i]), nil
	}

	var rec models.OrderRecord
	var err error

	if rec.OrderID, err = get(colOrderID); err != nil {
		return rec, err
	}
	if rec.Product, err = get(colProduct); err != nil {
		return rec, err
	}
	if rec.OrderTimestamp, err = get(colOrderDate); err != nil {
		return rec, err
	}
	if i := cols[colAddress]; i < len(fields) {
		// Addresses keep their inner spacing; state extraction depends on it.
		rec.PurchaseAddress = fields[i]
	} else {
		return rec, &MalformedInputError{Row: line, Field: colAddress, Err: fmt.Errorf("missing column")}
	}

	qty, err := get(colQuantity)
	if err != nil {
		return rec, err
	}
	if rec.Quantity, err = strconv.Atoi(qty); err != nil {
		return rec, &MalformedInputError{Row: line, Field: colQuantity, Value: qty, Err: err}
	}

	price, err := get(colPrice)
	if err != nil {
		return rec, err
	}
	if rec.UnitPrice, err = strconv.ParseFloat(price, 64); err != nil {
		return rec, &MalformedInputError{Row: line, Field: colPrice, Value: price, Err: err}
	}

	return rec, nil
}

// prepareBatches runs Prepare over fixed-size batches on a bounded worker
// pool. Output order matches input order.
func prepareBatches(ctx context.Context, records []models.OrderRecord, rows []int, opts LoadOptions) ([]models.DerivedRecord, error) {
	out := make([]models.DerivedRecord, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for start := 0; start < len(records); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(records))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			batch, err := Prepare(records[start:end])
			if err != nil {
				var mie *MalformedInputError
				if errors.As(err, &mie) {
					mie.Row = rows[start+mie.Row]
				}
				return err
			}

			copy(out[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
