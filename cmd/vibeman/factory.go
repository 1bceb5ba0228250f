package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/decompose"
	"github.com/ShayCichocki/vibeman/internal/detect"
	"github.com/ShayCichocki/vibeman/internal/llm"
	"github.com/ShayCichocki/vibeman/internal/prompts"
)

// newProvider builds the language-model provider from configuration.
func newProvider(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewAnthropicProvider(llm.ClientConfig{
		Model:         anthropic.Model(cfg.LLM.Model),
		APIKey:        cfg.LLM.APIKey,
		UseAWSBedrock: cfg.LLM.UseAWSBedrock,
		AWSRegion:     cfg.LLM.AWSRegion,
		AWSProfile:    cfg.LLM.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return provider, nil
}

// newDecomposeEngine wires the prompt service, detector, and decomposition
// engine from configuration.
func newDecomposeEngine(cfg *config.Config) (*decompose.Engine, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	svc := prompts.NewService(cfg.Prompts.Directory)
	detector := detect.NewDetector(provider, svc)

	opts := decompose.DefaultOptions()
	if cfg.RDD.MaxDepth > 0 {
		opts.MaxDepth = cfg.RDD.MaxDepth
	}
	if cfg.RDD.MaxSubTasks > 0 {
		opts.MaxSubTasks = cfg.RDD.MaxSubTasks
	}
	if cfg.RDD.MinConfidence > 0 {
		opts.MinConfidence = cfg.RDD.MinConfidence
	}
	return decompose.NewEngine(detector, provider, svc, opts), nil
}
