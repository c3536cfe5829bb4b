package observability

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	logger, hook := test.NewNullLogger()

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "ops server")
		panic("boom")
	})

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "boom", entry.Data["panic"])
		assert.Equal(t, "ops server", entry.Data["context"])
	}
}

func TestRecoverPanic_NoPanic(t *testing.T) {
	logger, hook := test.NewNullLogger()

	func() {
		defer RecoverPanic(logger, "quiet")
	}()

	assert.Empty(t, hook.AllEntries())
}
