package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"wp-pump/internal/sample"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCmd_LogsThroughLogrus(t *testing.T) {
	hook := test.NewGlobal()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.InfoLevel)
	prevOpts, prevOut := sampleOpts, sampleOut
	t.Cleanup(func() {
		hook.Reset()
		logrus.SetLevel(level)
		sampleOpts, sampleOut = prevOpts, prevOut
		sampleCmd.SetOut(nil)
	})

	sampleOut = filepath.Join(t.TempDir(), "sample.sql")
	sampleOpts = sample.Options{Users: 1, Categories: 1, Tags: 1, Posts: 2, Comments: 1, Seed: 7}
	var out bytes.Buffer
	sampleCmd.SetOut(&out)

	require.NoError(t, sampleCmd.RunE(sampleCmd, nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "sample done", entry.Message)
	assert.Equal(t, sampleOut, entry.Data["out"])
	assert.Contains(t, out.String(), "wp_posts")
}
