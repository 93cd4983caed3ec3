package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerSharedAcrossGoroutines(t *testing.T) {
	loggers := make([]*logger, 8)
	var wg sync.WaitGroup
	for i := range loggers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loggers[i] = getLogger()
			LogDebug("logger %d ready", i)
		}()
	}
	wg.Wait()

	for _, l := range loggers {
		assert.Same(t, loggers[0], l)
	}
}
