package clients

import (
	"context"
	"fmt"

	config "github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioRegion совпадает с регионом подписи R2.
const minioRegion = "auto"

// NewMinIOClient создаёт клиент MinIO с ключами объектного хранилища из конфигурации.
func NewMinIOClient(cfg *config.Config) (*minio.Client, error) {
	minioClient, err := minio.New(cfg.Minio.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKeyID, cfg.Storage.SecretAccessKey, ""),
		Secure: cfg.Minio.MinioUseSSL,
		Region: minioRegion,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return minioClient, nil
}

// PublicReadPolicy разрешает анонимное чтение ключей под images/.
func PublicReadPolicy(bucketName string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/images/*"]}]}`, bucketName)
}

// EnsureBucket создаёт бакет, если его нет, и открывает варианты на чтение.
// created == true, если бакет был создан этим вызовом.
func EnsureBucket(ctx context.Context, client *minio.Client, bucketName string) (created bool, err error) {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}
	if exists {
		return false, nil
	}

	if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: minioRegion}); err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := client.SetBucketPolicy(ctx, bucketName, PublicReadPolicy(bucketName)); err != nil {
		return true, e.Wrap(whereami.WhereAmI(), err)
	}

	return true, nil
}
