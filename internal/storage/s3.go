package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fablecourt/continuity/internal/util"
	"github.com/fablecourt/continuity/pkg/continuity"
	"github.com/fablecourt/continuity/pkg/scenario"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// NewS3Client creates an S3 client against the configured object store.
// Path style addressing supports MinIO and other S3-compatible stores.
func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

// AssetRegistry resolves entity names against the media asset bucket.
// Portrait and location art live under per-type prefixes; an entity with
// an asset is considered part of the scenario's established cast even if
// the scene text never formally introduced it.
type AssetRegistry struct {
	client *s3.Client
	bucket string
}

var _ continuity.AssetRegistry = (*AssetRegistry)(nil)

// NewAssetRegistry creates an AssetRegistry over the configured bucket.
func NewAssetRegistry(client *s3.Client) *AssetRegistry {
	return &AssetRegistry{
		client: client,
		bucket: util.GetEnv("AWS_BUCKET"),
	}
}

// assetPrefix maps an entity type to its bucket prefix.
func assetPrefix(entityType scenario.EntityType) string {
	switch entityType {
	case scenario.EntityTypeCharacter:
		return "characters"
	case scenario.EntityTypeLocation:
		return "locations"
	case scenario.EntityTypeItem:
		return "items"
	default:
		return ""
	}
}

// AssetExists reports whether any asset is stored under the entity's
// normalized name. Concepts never have assets.
func (r *AssetRegistry) AssetExists(ctx context.Context, entityType scenario.EntityType, name string) (bool, error) {
	prefix := assetPrefix(entityType)
	if prefix == "" {
		return false, nil
	}

	key := fmt.Sprintf("%s/%s", prefix, assetKey(name))
	out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		var nsb *types.NoSuchBucket
		if errors.As(err, &nsb) {
			return false, nil
		}
		return false, fmt.Errorf("failed to list assets under %s: %w", key, err)
	}
	return len(out.Contents) > 0, nil
}

// assetKey turns an entity name into its bucket key segment. Normalized
// names with spaces are stored with underscores.
func assetKey(name string) string {
	return strings.ReplaceAll(continuity.NormalizeName(name), " ", "_")
}
