package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "entitykit"

// Topics builds the topic names published by entitykit under one prefix.
//
//	topics := mqtt.NewTopics("entitykit")
//	topics.EntityEvent("something", "insert")
//	// Returns: "entitykit/entities/something/insert"
type Topics struct {
	prefix string
}

// NewTopics returns builders rooted at prefix. Surrounding slashes are
// trimmed and an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// EntityEvent returns the topic for changes of one operation on one kind.
//
// Example: entitykit/entities/something/replace
func (t Topics) EntityEvent(kind, op string) string {
	return fmt.Sprintf("%s/entities/%s/%s", t.Prefix(), kind, op)
}

// EntityEvents returns a wildcard matching every operation on kind.
//
// Example: entitykit/entities/something/+
func (t Topics) EntityEvents(kind string) string {
	return fmt.Sprintf("%s/entities/%s/+", t.Prefix(), kind)
}

// AllEntityEvents returns a wildcard matching every entity change.
//
// Example: entitykit/entities/#
func (t Topics) AllEntityEvents() string {
	return t.Prefix() + "/entities/#"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: entitykit/system/status
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}
