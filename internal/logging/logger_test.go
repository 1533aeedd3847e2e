package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewWithOutput("debug", &bytes.Buffer{}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewWithOutput("nope", &bytes.Buffer{}).GetLevel())
}

func TestLogError_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logg := NewWithOutput("info", &buf)

	LogError(logg, "order", "CreateOrder", "reserve stock", map[string]int64{"item_id": 7}, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "order", entry["module"])
	assert.Equal(t, "CreateOrder", entry["funcName"])
	assert.Equal(t, "reserve stock", entry["context"])
	assert.NotNil(t, entry["data"])
}

func TestLogError_WithoutData(t *testing.T) {
	var buf bytes.Buffer
	logg := NewWithOutput("info", &buf)

	LogError(logg, "sale", "Notify", "kafka", nil, errors.New("down"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, ok := entry["data"]
	assert.False(t, ok)
}
