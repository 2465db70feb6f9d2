package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
	"github.com/spec-kit/pharmacy-helpdesk/internal/events"
	"github.com/spec-kit/pharmacy-helpdesk/internal/service"
)

func TestStartNotificationWorker(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil) })

	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	StartNotificationWorker(service.NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{}))

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventTicketCreated, 1, nil, nil)))
	assert.Equal(t, 1, logs.FilterMessage("TicketCreated").Len())
}
