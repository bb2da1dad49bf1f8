// Package influxdb records entitykit time series in InfluxDB v2.
//
// Writes are non-blocking and batched according to influxdb.batch_size and
// influxdb.flush_interval; failures surface through the SetOnError callback.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStoreOperation("something", "insert", "ok", 3*time.Millisecond)
package influxdb
