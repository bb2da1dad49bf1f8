package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementStoreOperations holds one point per entity store call.
const MeasurementStoreOperations = "store_operations"

// WriteStoreOperation records the duration of one store call, tagged by
// entity kind, operation and outcome ("ok" or "error").
func (c *Client) WriteStoreOperation(kind, op, outcome string, d time.Duration) {
	c.WritePoint(MeasurementStoreOperations,
		map[string]string{
			"kind":    kind,
			"op":      op,
			"outcome": outcome,
		},
		map[string]any{
			"duration_ms": float64(d) / float64(time.Millisecond),
		},
		time.Now(),
	)
}

// WritePoint writes a custom point. Tags should be low cardinality.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
