package kafka

import (
	"testing"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 7, 12, 8, 30, 0, 0, time.UTC)
	alert := domain.Alert{
		ID:         "a-1",
		HazardType: domain.HazardCyclone,
		Severity:   domain.SeverityHigh,
		Status:     domain.StatusActive,
		Location:   domain.Location{Lat: 15.0, Lon: 87.0, Name: "Bay of Bengal"},
		CreatedAt:  now,
		ExpiresAt:  now.Add(12 * time.Hour),
	}

	msg, err := serializeToMessage(alert)
	require.NoError(t, err)

	assert.Equal(t, []byte("a-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"hazard_type":"cyclone"`)
	assert.Contains(t, string(msg.Value), `"severity":"high"`)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "hazard_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("cyclone"), msg.Headers[0].Value)
	assert.Equal(t, "severity", msg.Headers[1].Key)
	assert.Equal(t, []byte("high"), msg.Headers[1].Value)
	assert.Equal(t, "created_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}
