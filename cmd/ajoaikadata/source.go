package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/config"
	"github.com/HSLdevcom/ajoaikadata/internal/source"
)

// buildReader picks the historical/live source per spec.md §6. A
// connection string that looks like a URL names an S3-compatible
// endpoint (AzStorageContainer is the bucket); anything else is treated
// as a local directory of gzip CSV blobs, for backfill/dev use without a
// real object store.
func buildReader(ctx context.Context, cfg *config.Config, log zerolog.Logger) (source.Reader, error) {
	conn := cfg.AzStorageConnectionString
	if conn == "" {
		conn = cfg.AzStorageContainer
	}

	if strings.Contains(conn, "://") {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(conn)
			o.UsePathStyle = true
		})
		return source.NewS3BlobReader(client, cfg.AzStorageContainer, "", cfg.WatchBackfillInterval, log), nil
	}

	return source.NewCSVDirReader(conn, cfg.BytewaxBatchSize, log), nil
}
