package memory_test

import (
	"testing"

	"github.com/senzing-garage/stream-loader/pkg/messaging/adapters/memory"
	"github.com/senzing-garage/stream-loader/pkg/messaging/tests"
)

func TestMemoryBroker(t *testing.T) {
	broker := memory.New(memory.Config{BufferSize: 100})
	defer broker.Close()

	tests.RunBrokerTests(t, broker)
}
