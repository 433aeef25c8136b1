package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/salesdash/config"
)

func TestControllerAcquireRelease(t *testing.T) {
	limits := NewLimits(1, 1)
	controller := NewController(limits)

	require.Equal(t, limits, controller.LimitsSnapshot())

	require.NoError(t, controller.AcquireRequest(context.Background()))
	controller.ReleaseRequest()

	require.NoError(t, controller.AcquireLoad(context.Background()))
	controller.ReleaseLoad()
}

func TestControllerLoadSaturation(t *testing.T) {
	controller := NewController(NewLimits(1, 1))
	require.NoError(t, controller.AcquireLoad(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, controller.AcquireLoad(ctx), context.DeadlineExceeded)

	controller.ReleaseLoad()
	require.NoError(t, controller.AcquireLoad(context.Background()))
	controller.ReleaseLoad()
}

func TestFromConfig(t *testing.T) {
	l := FromConfig(config.Limits{MaxConcurrentRequests: 3, OperationTimeout: time.Second})
	require.Equal(t, 3, l.MaxConcurrentRequests)
	require.Equal(t, config.DefaultMaxConcurrentLoads, l.MaxConcurrentLoads)
	require.Equal(t, time.Second, l.OperationTimeout)
	require.Equal(t, config.DefaultAcquireRequestTimeout, l.AcquireRequestTimeout)
	require.Equal(t, config.DefaultMaxPreviewRows, l.PreviewRowLimit)

	l = FromConfig(config.Limits{MaxPreviewRows: 25})
	require.Equal(t, 25, l.PreviewRowLimit)
}
