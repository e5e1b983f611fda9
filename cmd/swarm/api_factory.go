package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/swarm/internal/agent"
	"github.com/ShayCichocki/swarm/internal/api"
	"github.com/ShayCichocki/swarm/internal/config"
)

// createExecutor builds the API-backed stage executor from config: direct
// Anthropic by default, AWS Bedrock when enabled.
func createExecutor(cfg *config.Config) (agent.Executor, error) {
	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Bedrock.Enabled,
		AWSRegion:     cfg.Bedrock.Region,
		AWSProfile:    cfg.Bedrock.Profile,
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}
	return agent.NewAPIExecutor(client), nil
}
