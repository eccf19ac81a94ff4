package beacon

import (
	"testing"
	"time"
)

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	m.OnStateChange(StateCreated, StateActive)
	m.OnCreateSuccess(10 * time.Millisecond)
	m.OnCreateFailure(10 * time.Millisecond)
	m.OnSetterSuccess(FieldTitle, time.Millisecond)
	m.OnSetterFailure(FieldTitle, time.Millisecond)
	m.OnSetterSkipped(FieldOffset)
	m.OnEventDelivered(EventClick)
	m.OnBindingStateChange(BindingLoading, BindingHealthy)
	m.OnDeclarationReceived()
	m.OnDeclarationFailure("decode", time.Millisecond)
}

var _ MetricsProvider = NoOpMetricsProvider{}
