package runloop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManualHost_lifecycle(t *testing.T) {
	host := NewManualHost()
	require.False(t, host.Running())
	require.False(t, host.Step())
	require.False(t, host.Terminate(AppSuccess))

	app := newScriptedApp(2)
	require.True(t, host.Post(`early`))
	require.Equal(t, ExitSuccess, host.EnterMainCallbacks([]string{`a`}, app))
	require.True(t, host.Running())
	require.Equal(t, 1, host.Pending())

	require.True(t, host.Step())
	require.Equal(t, 0, host.Pending())
	require.False(t, host.Step())
	require.False(t, host.Running())

	result, ended := host.Result()
	require.True(t, ended)
	require.Equal(t, AppSuccess, result)
	require.Equal(t, `init:a,event:early,iterate,iterate,quit:success`, app.rec.String())

	require.Equal(t, ExitFailure, host.EnterMainCallbacks(nil, app))
}

func TestManualHost_initFailureQuitsImmediately(t *testing.T) {
	host := &ManualHost{}
	app := newScriptedApp(2)
	app.init = AppFailure
	host.EnterMainCallbacks(nil, app)
	require.False(t, host.Running())
	require.False(t, host.Post(1))
	require.Equal(t, `init:,quit:failure`, app.rec.String())
}

func TestManualHost_eventsPostedDuringStepAreDeferred(t *testing.T) {
	host := NewManualHost()
	app := newScriptedApp(10)
	app.onEvent = func(event any) AppResult {
		if n, ok := event.(int); ok && n < 3 {
			host.Post(n + 1)
		}
		return AppContinue
	}
	host.EnterMainCallbacks(nil, app)
	host.Post(0)

	require.True(t, host.Step())
	require.Equal(t, `init:,event:0,iterate`, app.rec.String())
	require.Equal(t, 1, host.Pending())
	require.True(t, host.Step())
	require.Equal(t, `init:,event:0,iterate,event:1,iterate`, app.rec.String())
	require.True(t, host.Terminate(AppFailure))
	require.Equal(t, 0, host.Pending())
}
