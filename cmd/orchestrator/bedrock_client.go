package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// newBedrockClient loads the default AWS credential chain pinned to
// region, matching how storage.NewS3Backend resolves credentials.
func newBedrockClient(region string) (*bedrockruntime.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for bedrock: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}
