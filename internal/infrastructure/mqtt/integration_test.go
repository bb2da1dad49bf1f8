//go:build integration

package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests require a running MQTT broker at 127.0.0.1:1883.
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestIntegration_PublishEntityEvent(t *testing.T) {
	cfg := testConfig()
	client, err := Connect(cfg)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.HealthCheck(context.Background()))

	// A plain paho subscriber stands in for an event consumer.
	sub := pahomqtt.NewClient(pahomqtt.NewClientOptions().
		AddBroker("tcp://127.0.0.1:1883").
		SetClientID("entitykit-test-sub"))
	token := sub.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer sub.Disconnect(100)

	var (
		mu       sync.Mutex
		received []string
	)
	done := make(chan struct{}, 1)
	token = sub.Subscribe(client.Topics().AllEntityEvents(), 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		mu.Lock()
		received = append(received, msg.Topic())
		mu.Unlock()
		done <- struct{}{}
	})
	require.True(t, token.WaitTimeout(5*time.Second))

	topic := client.Topics().EntityEvent("something", "insert")
	require.NoError(t, client.Publish(topic, []byte(`{"kind":"something"}`), 1, false))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{topic}, received)
}

func TestIntegration_Callbacks(t *testing.T) {
	client, err := Connect(testConfig())
	require.NoError(t, err)

	disconnected := make(chan error, 1)
	client.SetOnDisconnect(func(err error) { disconnected <- err })
	client.SetOnConnect(func() {})

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
}
