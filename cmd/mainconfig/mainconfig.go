package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/calendar-booking-agent/internal/config"
)

// LoadAWSConfig centralizes AWS SDK initialization so the API and nluprobe
// share the same LocalStack/production wiring for Bedrock and SES.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.EndpointResolverWithOptions = localEndpoints(endpoint, cfg.AWSRegion)
	}
	return awsCfg, nil
}

// localEndpoints points the services the agent calls at a LocalStack-style
// endpoint. Every other service keeps the SDK default.
func localEndpoints(endpoint, region string) aws.EndpointResolverWithOptions {
	return aws.EndpointResolverWithOptionsFunc(func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
		switch service {
		case bedrockruntime.ServiceID, sesv2.ServiceID:
			return aws.Endpoint{URL: endpoint, PartitionID: "aws", SigningRegion: region}, nil
		default:
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}
	})
}
