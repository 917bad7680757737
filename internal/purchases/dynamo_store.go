package purchases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/masterclass-checkout/internal/aws"
	"github.com/shopspring/decimal"
)

// purchaseItem is the shape persisted in the purchases DynamoDB table.
type purchaseItem struct {
	ID            string    `dynamodbav:"id"` // PK
	Name          string    `dynamodbav:"name"`
	Email         string    `dynamodbav:"email"`
	Phone         string    `dynamodbav:"phone"`
	ProductName   string    `dynamodbav:"product_name"`
	Amount        string    `dynamodbav:"amount"` // decimal string, major units
	Currency      string    `dynamodbav:"currency"`
	PaymentStatus string    `dynamodbav:"payment_status"`
	OrderID       string    `dynamodbav:"order_id,omitempty"`
	PaymentID     string    `dynamodbav:"payment_id,omitempty"`
	DownloadLink  string    `dynamodbav:"download_link,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
}

// productFileItem is the shape persisted in the product files table.
type productFileItem struct {
	ProductName string `dynamodbav:"product_name"` // PK
	FileContent string `dynamodbav:"file_content"`
}

func toItem(p Purchase) purchaseItem {
	return purchaseItem{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		ProductName:   p.ProductName,
		Amount:        p.Amount.String(),
		Currency:      p.Currency,
		PaymentStatus: p.PaymentStatus,
		OrderID:       p.OrderID,
		PaymentID:     p.PaymentID,
		DownloadLink:  p.DownloadLink,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (it purchaseItem) purchase() (*Purchase, error) {
	amount, err := decimal.NewFromString(it.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", it.Amount, err)
	}
	return &Purchase{
		ID:            it.ID,
		Name:          it.Name,
		Email:         it.Email,
		Phone:         it.Phone,
		ProductName:   it.ProductName,
		Amount:        amount,
		Currency:      it.Currency,
		PaymentStatus: it.PaymentStatus,
		OrderID:       it.OrderID,
		PaymentID:     it.PaymentID,
		DownloadLink:  it.DownloadLink,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}, nil
}

// DynamoStore keeps purchases and product files in two DynamoDB tables.
type DynamoStore struct {
	client     aws.DynamoDBAPI
	tableName  string
	filesTable string
	nowFunc    func() time.Time
}

// NewDynamoStore creates a DynamoDB backed Store.
func NewDynamoStore(client aws.DynamoDBAPI, tableName, filesTable string) *DynamoStore {
	return &DynamoStore{
		client:     client,
		tableName:  tableName,
		filesTable: filesTable,
		nowFunc:    time.Now,
	}
}

// Create writes a new pending purchase; an existing id is rejected.
func (s *DynamoStore) Create(ctx context.Context, p Purchase) error {
	now := s.nowFunc().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.PaymentStatus = StatusPending

	item, err := attributevalue.MarshalMap(toItem(p))
	if err != nil {
		return fmt.Errorf("marshal purchase: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("purchase %s already exists", p.ID)
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a purchase by id. Returns ErrNotFound if missing.
func (s *DynamoStore) Get(ctx context.Context, id string) (*Purchase, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       purchaseKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var it purchaseItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal purchase: %w", err)
	}
	return it.purchase()
}

// AttachOrder records the gateway order id on a pending purchase.
func (s *DynamoStore) AttachOrder(ctx context.Context, id, orderID string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      purchaseKey(id),
		UpdateExpression:         awsString("SET order_id = :oid, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(id) AND #s = :pending"),
		ExpressionAttributeNames: map[string]string{"#s": "payment_status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid":     &types.AttributeValueMemberS{Value: orderID},
			":ua":      &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339)},
			":pending": &types.AttributeValueMemberS{Value: StatusPending},
		},
	})
	return s.conditionalErr(ctx, id, err, "attach order")
}

// MarkCompleted moves a purchase pending -> completed and stores the payment id.
func (s *DynamoStore) MarkCompleted(ctx context.Context, id, paymentID, downloadLink string) error {
	updateExpr := "SET #s = :completed, payment_id = :pid, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":completed": &types.AttributeValueMemberS{Value: StatusCompleted},
		":pending":   &types.AttributeValueMemberS{Value: StatusPending},
		":pid":       &types.AttributeValueMemberS{Value: paymentID},
		":ua":        &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339)},
	}
	if downloadLink != "" {
		updateExpr += ", download_link = :dl"
		values[":dl"] = &types.AttributeValueMemberS{Value: downloadLink}
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       purchaseKey(id),
		UpdateExpression:          &updateExpr,
		ConditionExpression:       awsString("attribute_exists(id) AND #s = :pending"),
		ExpressionAttributeNames:  map[string]string{"#s": "payment_status"},
		ExpressionAttributeValues: values,
	})
	return s.conditionalErr(ctx, id, err, "mark completed")
}

// FileContent returns the deliverable stored for productName.
func (s *DynamoStore) FileContent(ctx context.Context, productName string) (string, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.filesTable,
		Key: map[string]types.AttributeValue{
			"product_name": &types.AttributeValueMemberS{Value: productName},
		},
	})
	if err != nil {
		return "", fmt.Errorf("get product file: %w", err)
	}
	if len(out.Item) == 0 {
		return "", ErrFileNotFound
	}
	var f productFileItem
	if err := attributevalue.UnmarshalMap(out.Item, &f); err != nil {
		return "", fmt.Errorf("unmarshal product file: %w", err)
	}
	return f.FileContent, nil
}

// conditionalErr distinguishes a missing row from a row in the wrong state
// when a conditional update fails.
func (s *DynamoStore) conditionalErr(ctx context.Context, id string, err error, op string) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return fmt.Errorf("update item (%s): %w", op, err)
	}
	if _, getErr := s.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
		return ErrNotFound
	}
	return ErrStatusMismatch
}

func purchaseKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func awsString(s string) *string { return &s }
