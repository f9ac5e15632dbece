package dynamo

import (
	"context"

	"github.com/article-live-api/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewClient builds the DynamoDB client shared by all repos. A non-empty
// AWSEndpointURL routes every call to that endpoint (LocalStack in dev);
// static credentials are only injected when explicitly configured, otherwise
// the default provider chain applies.
func NewClient(cfg *config.Config) *dynamodb.Client {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOptions(cfg)...)
	if err != nil {
		panic("failed to load AWS config: " + err.Error())
	}
	if cfg.AWSEndpointURL == "" {
		return dynamodb.NewFromConfig(awsCfg)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
	})
}

func loadOptions(cfg *config.Config) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	return opts
}
