// Package mqtt publishes entitykit events to an MQTT broker.
//
// The client connects with auto-reconnect, announces itself on a retained
// system status topic and registers a Last Will so consumers notice an
// unexpected disconnect. Entity change events are published under
//
//	<prefix>/entities/<kind>/<op>
//
// where prefix comes from mqtt.topic_prefix (default "entitykit").
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().EntityEvent("something", "insert")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
