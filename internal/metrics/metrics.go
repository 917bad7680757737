// Package metrics publishes checkout counters to CloudWatch.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/imrishuroy/masterclass-checkout/internal/aws"
)

// Metric names
const (
	OrdersCreated    = "OrdersCreated"
	PaymentsVerified = "PaymentsVerified"
	PaymentsRejected = "PaymentsRejected"
)

// Recorder counts checkout events. A Recorder with an empty namespace is a no-op.
type Recorder struct {
	client    aws.CloudWatchAPI
	namespace string
	log       *zap.Logger
	nowFunc   func() time.Time
}

func NewRecorder(client aws.CloudWatchAPI, namespace string, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{client: client, namespace: namespace, log: log, nowFunc: time.Now}
}

func (r *Recorder) Enabled() bool {
	return r != nil && r.client != nil && r.namespace != ""
}

// Incr adds one to the named counter for product. Failures are logged only.
func (r *Recorder) Incr(ctx context.Context, name, product string) {
	if !r.Enabled() {
		return
	}
	now := r.nowFunc()
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &r.namespace,
		MetricData: []cwtypes.MetricDatum{{
			MetricName: &name,
			Unit:       cwtypes.StandardUnitCount,
			Value:      float64Ptr(1),
			Timestamp:  &now,
			Dimensions: []cwtypes.Dimension{{
				Name:  stringPtr("Product"),
				Value: &product,
			}},
		}},
	})
	if err != nil {
		r.log.Warn("put metric data failed",
			zap.String("metric", name),
			zap.String("product", product),
			zap.Error(err))
	}
}

func float64Ptr(v float64) *float64 { return &v }
func stringPtr(s string) *string    { return &s }
