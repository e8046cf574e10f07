package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoBlobItem struct {
	PK        string `dynamodbav:"pk"`
	Payload   []byte `dynamodbav:"payload"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// DynamoBlob keeps the collection in one DynamoDB item keyed by pk.
type DynamoBlob struct {
	client dynamoAPI
	table  string
	key    string
	now    func() time.Time
}

// NewDynamoBlob creates a blob stored in table under partition key value key.
func NewDynamoBlob(client dynamoAPI, table, key string) *DynamoBlob {
	if client == nil {
		panic("appointments: dynamodb client cannot be nil")
	}
	if strings.TrimSpace(key) == "" {
		key = "healthy_life_appointments"
	}
	return &DynamoBlob{client: client, table: table, key: key, now: time.Now}
}

func (b *DynamoBlob) Read(ctx context.Context) ([]byte, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.table),
		Key:            map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: b.key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	var item dynamoBlobItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamodb unmarshal item: %w", err)
	}
	return item.Payload, nil
}

func (b *DynamoBlob) Write(ctx context.Context, data []byte) error {
	av, err := attributevalue.MarshalMap(dynamoBlobItem{
		PK:        b.key,
		Payload:   data,
		UpdatedAt: b.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("dynamodb marshal item: %w", err)
	}
	if _, err := b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("dynamodb put item: %w", err)
	}
	return nil
}
