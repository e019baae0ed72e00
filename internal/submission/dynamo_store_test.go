package submission

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDynamo struct {
	putInput    *dynamodb.PutItemInput
	putErr      error
	updateInput *dynamodb.UpdateItemInput
	updateErr   error
	getOutput   *dynamodb.GetItemOutput
}

func (s *stubDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.putInput = in
	if s.putErr != nil {
		return nil, s.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (s *stubDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	s.updateInput = in
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (s *stubDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if s.getOutput != nil {
		return s.getOutput, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func TestDynamoClaimPendingConditional(t *testing.T) {
	stub := &stubDynamo{}
	store := NewDynamoMetaStore(stub, "submission-meta", nil)

	claimed, err := store.ClaimPending(context.Background(), &Meta{EntryID: 42, FormID: 7})
	require.NoError(t, err)
	assert.True(t, claimed)
	require.NotNil(t, stub.putInput)
	assert.Equal(t, "attribute_not_exists(entryId)", *stub.putInput.ConditionExpression)
}

func TestDynamoClaimPendingLosesRace(t *testing.T) {
	stub := &stubDynamo{putErr: &types.ConditionalCheckFailedException{}}
	store := NewDynamoMetaStore(stub, "submission-meta", nil)

	claimed, err := store.ClaimPending(context.Background(), &Meta{EntryID: 42})
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestDynamoClaimRunningLosesRace(t *testing.T) {
	stub := &stubDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	store := NewDynamoMetaStore(stub, "submission-meta", nil)

	claimed, err := store.ClaimRunning(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestDynamoGetNotFound(t *testing.T) {
	store := NewDynamoMetaStore(&stubDynamo{}, "submission-meta", nil)
	_, err := store.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrMetaNotFound)
}
