package idempotency

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a very small in-memory mock for PutItem/GetItem/UpdateItem used in unit tests.
// NOTE: This is intentionally minimal and not production-grade.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	putCalls    int
	getCalls    int
	updateCalls int
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	keyAttr, ok := params.Item["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	k := keyAttr.Value
	// implement ConditionExpression: attribute_not_exists(idempotency_key)
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(idempotency_key)" {
		if _, ok := m.table[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	keyAttr, ok := params.Key["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	item, ok := m.table[keyAttr.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	keyAttr, ok := params.Key["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	k := keyAttr.Value
	item, ok := m.table[k]
	if !ok {
		return nil, errors.New("item not found")
	}
	vals := params.ExpressionAttributeValues

	// Reclaim condition: #s = :failed OR expires_at < :now
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :failed OR expires_at < :now" {
		status := item["status"].(*types.AttributeValueMemberS).Value
		failed := status == vals[":failed"].(*types.AttributeValueMemberS).Value
		expired := false
		if ea, ok := item["expires_at"].(*types.AttributeValueMemberN); ok {
			exp, _ := strconv.ParseInt(ea.Value, 10, 64)
			now, _ := strconv.ParseInt(vals[":now"].(*types.AttributeValueMemberN).Value, 10, 64)
			expired = exp < now
		}
		if !failed && !expired {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}

	// very naive update: copy the known placeholders onto their attributes
	for placeholder, attr := range map[string]string{
		":rb":         "response_body",
		":rs":         "response_status",
		":ua":         "updated_at",
		":n":          "note",
		":pid":        "purchase_id",
		":ea":         "expires_at",
		":done":       "status",
		":inprogress": "status",
	} {
		if v, ok := vals[placeholder]; ok {
			item[attr] = v
		}
	}
	// :failed is both a condition operand (Reclaim) and a new value (MarkFailed)
	if v, ok := vals[":failed"]; ok && params.ConditionExpression == nil {
		item["status"] = v
	}
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}
