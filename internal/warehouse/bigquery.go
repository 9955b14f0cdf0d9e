package warehouse

import (
	"context"
	"errors"
	"fmt"
	"popmetrics/internal/models"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BigQuery runs queries on Google BigQuery.
type BigQuery struct {
	client *bigquery.Client
	logger *zap.Logger
}

type bqRow struct {
	Year          int64               `bigquery:"year"`
	CountryName   string              `bigquery:"country_name"`
	CountryCode   string              `bigquery:"country_code"`
	IndicatorName string              `bigquery:"indicator_name"`
	Value         bigquery.NullFloat64 `bigquery:"value"`
}

// NewBigQuery creates a client billed to projectID. An empty credentialsFile
// falls back to application default credentials.
func NewBigQuery(ctx context.Context, projectID, credentialsFile string, logger *zap.Logger) (*BigQuery, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create bigquery client: %v", ErrUpstream, err)
	}
	return &BigQuery{client: client, logger: logger}, nil
}

// Run executes query and reads every result row.
func (b *BigQuery) Run(ctx context.Context, query string) ([]models.RawRow, error) {
	it, err := b.client.Query(query).Read(ctx)
	if err != nil {
		return nil, wrapUpstream(ctx, "run bigquery job", err)
	}

	rows := make([]models.RawRow, 0, it.TotalRows)
	for {
		var r bqRow
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapUpstream(ctx, "read bigquery row", err)
		}
		row := models.RawRow{
			Year:          int(r.Year),
			CountryName:   r.CountryName,
			CountryCode:   r.CountryCode,
			IndicatorName: r.IndicatorName,
		}
		if r.Value.Valid {
			v := r.Value.Float64
			row.Value = &v
		}
		rows = append(rows, row)
	}

	b.logger.Debug("bigquery rows read", zap.Int("rows", len(rows)))
	return rows, nil
}

func (b *BigQuery) Close() error {
	return b.client.Close()
}

// wrapUpstream keeps context errors visible to errors.Is so callers can
// tell a timeout apart from a rejected query.
func wrapUpstream(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}
