package conformance

import (
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

type testWriter struct{ t *testing.T }

func (x testWriter) Write(b []byte) (int, error) {
	x.t.Log(string(b))
	return len(b), nil
}

func newTestLogger(t *testing.T) *logiface.Logger[logiface.Event] {
	t.Helper()
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(testWriter{t}), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
}
