package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records and attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("upload accepted", slog.String("file", "listings.xlsx"))
		logger.Error("upload rejected", slog.Int("status", 413))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("accepted"))
		assert.True(t, handler.ContainsAttr("file", "listings.xlsx"))
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("derived loggers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "analysis")).Warn("view not computed")

		assert.Equal(t, 1, handler.Count())
		AssertLogAttr(t, handler, "component", "analysis")
		AssertLogContains(t, handler, slog.LevelWarn, "view not computed")
		AssertNoErrors(t, handler)
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Info("one")
		logger.Info("two")

		handler.Clear()

		assert.Equal(t, 0, handler.Count())
	})

	t.Run("concurrent logging", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				logger.Info("concurrent log", slog.Int("goroutine", n))
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, handler.Count())
	})
}
