package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
)

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestIncr_PutsCounterWithProductDimension(t *testing.T) {
	m := &mockCloudWatch{}
	r := NewRecorder(m, "Masterclass/Checkout", nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.nowFunc = func() time.Time { return fixed }

	r.Incr(context.Background(), OrdersCreated, "source-code")

	if len(m.inputs) != 1 {
		t.Fatalf("expected 1 PutMetricData call, got %d", len(m.inputs))
	}
	in := m.inputs[0]
	if *in.Namespace != "Masterclass/Checkout" {
		t.Fatalf("namespace mismatch: %s", *in.Namespace)
	}
	d := in.MetricData[0]
	if *d.MetricName != OrdersCreated || *d.Value != 1 || !d.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected datum: %+v", d)
	}
	if len(d.Dimensions) != 1 || *d.Dimensions[0].Name != "Product" || *d.Dimensions[0].Value != "source-code" {
		t.Fatalf("unexpected dimensions: %+v", d.Dimensions)
	}
}

func TestIncr_DisabledWithoutNamespace(t *testing.T) {
	m := &mockCloudWatch{}
	r := NewRecorder(m, "", nil)
	r.Incr(context.Background(), PaymentsVerified, "materials")
	if len(m.inputs) != 0 {
		t.Fatalf("expected no calls, got %d", len(m.inputs))
	}

	var nilRecorder *Recorder
	nilRecorder.Incr(context.Background(), PaymentsVerified, "materials")
}

func TestIncr_ErrorIsSwallowed(t *testing.T) {
	m := &mockCloudWatch{err: errors.New("throttled")}
	r := NewRecorder(m, "ns", nil)
	r.Incr(context.Background(), PaymentsRejected, "materials")
	if len(m.inputs) != 1 {
		t.Fatalf("expected call to be attempted")
	}
}
