// Package changefeed announces entity store writes over MQTT.
//
// Store wraps another entity.Store and, after every successful Insert or
// Replace, publishes an Event to
//
//	<prefix>/entities/<kind>/<op>
//
// Remove and RemoveEqual publish only when a row was actually deleted.
//
// Publishing never fails the write: errors are logged and the store call
// returns the wrapped store's result. Events are sent when the write
// returns, so a write inside a transaction that later rolls back has
// still been announced.
package changefeed
