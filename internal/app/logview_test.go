package app

import (
	"fmt"
	"testing"
	"time"

	"fyne.io/fyne/v2/data/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLogCaptureKeepsLastLines(t *testing.T) {
	b := binding.NewString()
	l := newLogCapture(b, 3)
	for i := 1; i <= 5; i++ {
		_, err := fmt.Fprintf(l, "line %d\n", i)
		require.NoError(t, err)
	}
	assert.Equal(t, "line 3\nline 4\nline 5", l.text())
	got, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, "line 3\nline 4\nline 5", got)
}

func TestLogCaptureSplitsCRLF(t *testing.T) {
	l := newLogCapture(binding.NewString(), 0)
	_, _ = l.Write([]byte("a\r\nb\r\n\r\n"))
	assert.Equal(t, "a\nb", l.text())
}

func TestLogCaptureDebouncedFlush(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := binding.NewString()
	l := newLogCapture(b, 10)
	l.start()
	_, _ = l.Write([]byte("prediction received\n"))

	assert.Eventually(t, func() bool {
		got, _ := b.Get()
		return got == "prediction received"
	}, 2*time.Second, 20*time.Millisecond)

	_, _ = l.Write([]byte("selection saved\n"))
	l.stop()
	got, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, "prediction received\nselection saved", got)
}
