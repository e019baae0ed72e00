package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/nicscott/assessment-reports/internal/config"
)

func TestBuildQueueMemory(t *testing.T) {
	cfg := &appconfig.Config{UseMemoryQueue: true}
	queue, err := BuildQueue(cfg, aws.Config{})
	require.NoError(t, err)
	assert.NotNil(t, queue)
}

func TestBuildQueueRequiresURL(t *testing.T) {
	cfg := &appconfig.Config{}
	_, err := BuildQueue(cfg, aws.Config{})
	assert.Error(t, err)
}

func TestBuildMetaStoreMemory(t *testing.T) {
	cfg := &appconfig.Config{MetaBackend: "memory"}
	store, err := BuildMetaStore(cfg, nil, aws.Config{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestBuildMetaStorePostgresFallsBackWithoutPool(t *testing.T) {
	cfg := &appconfig.Config{MetaBackend: "postgres"}
	store, err := BuildMetaStore(cfg, nil, aws.Config{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestBuildMetaStoreUnknownBackend(t *testing.T) {
	cfg := &appconfig.Config{MetaBackend: "cassandra"}
	_, err := BuildMetaStore(cfg, nil, aws.Config{}, nil)
	assert.Error(t, err)
}

func TestBuildLLMClientNone(t *testing.T) {
	cfg := &appconfig.Config{AIProvider: "none", AITemperature: 0.7, AIMaxTokens: 500}
	client, params, err := BuildLLMClient(context.Background(), cfg, aws.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Equal(t, float32(0.7), params.Temperature)
	assert.EqualValues(t, 500, params.MaxTokens)
}

func TestBuildLLMClientAutoWithoutProviders(t *testing.T) {
	cfg := &appconfig.Config{AIProvider: "auto"}
	client, _, err := BuildLLMClient(context.Background(), cfg, aws.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestBuildLLMClientBedrock(t *testing.T) {
	cfg := &appconfig.Config{AIProvider: "bedrock", BedrockModelID: "anthropic.claude-3-haiku"}
	client, params, err := BuildLLMClient(context.Background(), cfg, aws.Config{Region: "us-east-1"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, "bedrock", params.Provider)
	assert.Equal(t, "anthropic.claude-3-haiku", params.Model)
}

func TestPromptSettings(t *testing.T) {
	cfg := &appconfig.Config{
		AITone:                   appconfig.ToneFriendly,
		AIVoice:                  appconfig.VoiceThirdPerson,
		AIAdditionalInstructions: "Avoid medical claims.",
	}
	settings := PromptSettings(cfg)
	assert.Equal(t, appconfig.ToneFriendly, settings.Tone)
	assert.Equal(t, appconfig.VoiceThirdPerson, settings.Voice)
	assert.Equal(t, "Avoid medical claims.", settings.AdditionalInstructions)
}
