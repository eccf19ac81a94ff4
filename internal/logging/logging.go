// Package logging bridges beacon's capitan signals to a zerolog logger.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/beacon/pkg/wsbridge"
	"github.com/zoobzio/capitan"
)

// New builds a zerolog logger writing to w at the named level. Unknown
// levels fall back to info. When pretty is set output is human readable.
func New(w io.Writer, level string, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Install hooks every beacon and wsbridge signal into log. Failures log at
// warn or error, lifecycle at info and per-field chatter at debug.
func Install(log zerolog.Logger) {
	l := hooks{log: log}

	capitan.Hook(beacon.MarkerCreated, l.at(zerolog.InfoLevel, beacon.MarkerCreated.Name()))
	capitan.Hook(beacon.MarkerReady, l.at(zerolog.InfoLevel, beacon.MarkerReady.Name()))
	capitan.Hook(beacon.MarkerDestroyed, l.at(zerolog.InfoLevel, beacon.MarkerDestroyed.Name()))
	capitan.Hook(beacon.MarkerStateChanged, l.at(zerolog.DebugLevel, beacon.MarkerStateChanged.Name()))

	capitan.Hook(beacon.HandleCreateFailed, l.at(zerolog.ErrorLevel, beacon.HandleCreateFailed.Name()))
	capitan.Hook(beacon.HandleDisposed, l.at(zerolog.DebugLevel, beacon.HandleDisposed.Name()))
	capitan.Hook(beacon.HandleDisposeFailed, l.at(zerolog.WarnLevel, beacon.HandleDisposeFailed.Name()))

	capitan.Hook(beacon.SetterApplied, l.at(zerolog.DebugLevel, beacon.SetterApplied.Name()))
	capitan.Hook(beacon.SetterFailed, l.at(zerolog.WarnLevel, beacon.SetterFailed.Name()))
	capitan.Hook(beacon.SetterSkipped, l.at(zerolog.DebugLevel, beacon.SetterSkipped.Name()))
	capitan.Hook(beacon.EventDelivered, l.at(zerolog.DebugLevel, beacon.EventDelivered.Name()))
	capitan.Hook(beacon.EventBindFailed, l.at(zerolog.WarnLevel, beacon.EventBindFailed.Name()))
	capitan.Hook(beacon.EventUnbindFailed, l.at(zerolog.WarnLevel, beacon.EventUnbindFailed.Name()))
	capitan.Hook(beacon.ConfigError, l.at(zerolog.WarnLevel, beacon.ConfigError.Name()))

	capitan.Hook(beacon.BindingStarted, l.at(zerolog.InfoLevel, beacon.BindingStarted.Name()))
	capitan.Hook(beacon.BindingStopped, l.at(zerolog.InfoLevel, beacon.BindingStopped.Name()))
	capitan.Hook(beacon.BindingStateChanged, l.at(zerolog.InfoLevel, beacon.BindingStateChanged.Name()))
	capitan.Hook(beacon.DeclarationReceived, l.at(zerolog.DebugLevel, beacon.DeclarationReceived.Name()))
	capitan.Hook(beacon.DeclarationDecodeFailed, l.at(zerolog.WarnLevel, beacon.DeclarationDecodeFailed.Name()))
	capitan.Hook(beacon.DeclarationValidationFailed, l.at(zerolog.WarnLevel, beacon.DeclarationValidationFailed.Name()))
	capitan.Hook(beacon.DeclarationApplyFailed, l.at(zerolog.ErrorLevel, beacon.DeclarationApplyFailed.Name()))
	capitan.Hook(beacon.DeclarationApplied, l.at(zerolog.InfoLevel, beacon.DeclarationApplied.Name()))

	capitan.Hook(wsbridge.HostConnected, l.at(zerolog.InfoLevel, wsbridge.HostConnected.Name()))
	capitan.Hook(wsbridge.HostDisconnected, l.at(zerolog.InfoLevel, wsbridge.HostDisconnected.Name()))
	capitan.Hook(wsbridge.HostRejected, l.at(zerolog.WarnLevel, wsbridge.HostRejected.Name()))
	capitan.Hook(wsbridge.FrameDropped, l.at(zerolog.WarnLevel, wsbridge.FrameDropped.Name()))
}

type hooks struct {
	log zerolog.Logger
}

// at returns a hook logging the event's known fields at level.
func (h hooks) at(level zerolog.Level, signal string) func(context.Context, *capitan.Event) {
	return func(_ context.Context, e *capitan.Event) {
		ev := h.log.WithLevel(level).Str("signal", signal)
		str := func(name string, v string, ok bool) {
			if ok && v != "" {
				ev = ev.Str(name, v)
			}
		}
		v, ok := beacon.KeyMarker.From(e)
		str("marker", v, ok)
		v, ok = beacon.KeyField.From(e)
		str("field", v, ok)
		v, ok = beacon.KeyEvent.From(e)
		str("event", v, ok)
		v, ok = beacon.KeyState.From(e)
		str("state", v, ok)
		v, ok = beacon.KeyOldState.From(e)
		str("old_state", v, ok)
		v, ok = beacon.KeyNewState.From(e)
		str("new_state", v, ok)
		v, ok = beacon.KeyError.From(e)
		str("error", v, ok)
		v, ok = wsbridge.KeyHost.From(e)
		str("host", v, ok)

		if d, ok := beacon.KeyDebounce.From(e); ok {
			ev = ev.Dur("debounce", d)
		}
		if n, ok := beacon.KeyCount.From(e); ok {
			ev = ev.Int("count", n)
		}
		if n, ok := beacon.KeyLayer.From(e); ok {
			ev = ev.Int("layer", n)
		}
		ev.Send()
	}
}
