package submission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nicscott/assessment-reports/internal/scoring"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type dynamoMetaRecord struct {
	EntryID         int64                 `dynamodbav:"entryId"`
	FormID          int64                 `dynamodbav:"formId"`
	ReportID        int64                 `dynamodbav:"reportId"`
	UIDHash         string                `dynamodbav:"uidHash"`
	TopSections     []dynamoSectionRecord `dynamodbav:"topSections,omitempty"`
	TotalScore      int                   `dynamodbav:"totalScore"`
	Status          string                `dynamodbav:"status"`
	StatusError     string                `dynamodbav:"statusError,omitempty"`
	StatusUpdatedAt string                `dynamodbav:"statusUpdatedAt"`
	Content         map[string]string     `dynamodbav:"content,omitempty"`
}

type dynamoSectionRecord struct {
	SectionID int64 `dynamodbav:"sectionId"`
	Score     int   `dynamodbav:"score"`
	ParentID  int64 `dynamodbav:"parentId"`
}

// DynamoMetaStore persists submission metadata in DynamoDB. Used when
// the service runs without a relational database.
type DynamoMetaStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewDynamoMetaStore builds a store backed by the provided DynamoDB client.
func NewDynamoMetaStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoMetaStore {
	if client == nil {
		panic("submission: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("submission: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoMetaStore{client: client, tableName: tableName, logger: logger}
}

var _ MetaStore = (*DynamoMetaStore)(nil)

func (s *DynamoMetaStore) Get(ctx context.Context, entryID int64) (*Meta, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       entryKey(entryID),
	})
	if err != nil {
		return nil, fmt.Errorf("submission: fetch meta: %w", err)
	}
	if out.Item == nil {
		return nil, ErrMetaNotFound
	}

	var rec dynamoMetaRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("submission: decode meta: %w", err)
	}
	return rec.toMeta(), nil
}

func (s *DynamoMetaStore) ClaimPending(ctx context.Context, meta *Meta) (bool, error) {
	rec := newDynamoRecord(meta)
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("submission: marshal meta: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(entryId)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("submission: claim pending: %w", err)
	}
	return true, nil
}

func (s *DynamoMetaStore) ClaimRunning(ctx context.Context, entryID int64) (bool, error) {
	err := s.update(ctx, entryID,
		"SET #status = :next, statusUpdatedAt = :updated",
		map[string]types.AttributeValue{
			":next":    &types.AttributeValueMemberS{Value: string(StatusRunning)},
			":prev":    &types.AttributeValueMemberS{Value: string(StatusPending)},
			":updated": nowAttr(),
		},
		aws.String("attribute_exists(entryId) AND #status = :prev"),
	)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *DynamoMetaStore) MarkReady(ctx context.Context, entryID int64, content map[string]string) error {
	contentAttr, err := attributevalue.Marshal(content)
	if err != nil {
		return fmt.Errorf("submission: marshal content: %w", err)
	}
	return s.update(ctx, entryID,
		"SET #status = :status, statusError = :error, content = :content, statusUpdatedAt = :updated",
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(StatusReady)},
			":error":   &types.AttributeValueMemberS{Value: ""},
			":content": contentAttr,
			":updated": nowAttr(),
		},
		aws.String("attribute_exists(entryId)"),
	)
}

func (s *DynamoMetaStore) MarkFailed(ctx context.Context, entryID int64, errMsg string) error {
	return s.update(ctx, entryID,
		"SET #status = :status, statusError = :error, statusUpdatedAt = :updated",
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(StatusFailed)},
			":error":   &types.AttributeValueMemberS{Value: errMsg},
			":updated": nowAttr(),
		},
		aws.String("attribute_exists(entryId)"),
	)
}

func (s *DynamoMetaStore) ResetPending(ctx context.Context, entryID int64) error {
	return s.update(ctx, entryID,
		"SET #status = :status, statusError = :error, statusUpdatedAt = :updated REMOVE content",
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(StatusPending)},
			":error":   &types.AttributeValueMemberS{Value: ""},
			":updated": nowAttr(),
		},
		aws.String("attribute_exists(entryId)"),
	)
}

func (s *DynamoMetaStore) update(ctx context.Context, entryID int64, expression string, values map[string]types.AttributeValue, condition *string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       entryKey(entryID),
		UpdateExpression:          aws.String(expression),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       condition,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return err
		}
		return fmt.Errorf("submission: update meta %d: %w", entryID, err)
	}
	return nil
}

func entryKey(entryID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"entryId": &types.AttributeValueMemberN{Value: strconv.FormatInt(entryID, 10)},
	}
}

func nowAttr() types.AttributeValue {
	return &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)}
}

func newDynamoRecord(meta *Meta) dynamoMetaRecord {
	rec := dynamoMetaRecord{
		EntryID:         meta.EntryID,
		FormID:          meta.FormID,
		ReportID:        meta.ReportID,
		UIDHash:         meta.UIDHash,
		TotalScore:      meta.TotalScore,
		Status:          string(StatusPending),
		StatusUpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, sec := range meta.TopSections {
		rec.TopSections = append(rec.TopSections, dynamoSectionRecord{
			SectionID: sec.SectionID,
			Score:     sec.Score,
			ParentID:  sec.ParentID,
		})
	}
	return rec
}

func (r dynamoMetaRecord) toMeta() *Meta {
	m := &Meta{
		EntryID:     r.EntryID,
		FormID:      r.FormID,
		ReportID:    r.ReportID,
		UIDHash:     r.UIDHash,
		TotalScore:  r.TotalScore,
		Status:      GenerationStatus(r.Status),
		StatusError: r.StatusError,
		Content:     r.Content,
	}
	if ts, err := time.Parse(time.RFC3339Nano, r.StatusUpdatedAt); err == nil {
		m.StatusUpdatedAt = ts
	}
	for _, sec := range r.TopSections {
		m.TopSections = append(m.TopSections, scoring.SectionScore{
			SectionID: sec.SectionID,
			Score:     sec.Score,
			ParentID:  sec.ParentID,
		})
	}
	return m
}
