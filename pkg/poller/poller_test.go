package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/events"
	"github.com/hsbatt/hsbatt/pkg/headset"
	"github.com/hsbatt/hsbatt/pkg/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	notify chan events.Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{notify: make(chan events.Event, 64)}
}

func (r *recordingPublisher) Publish(name string, payload any) {
	ev, err := events.NewEvent(name, payload)
	if err != nil {
		panic(err)
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- ev:
	default:
	}
}

func (r *recordingPublisher) named(name string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []events.Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func newTestPoller(dev headset.Device) (*Poller, *fakeClock, *recordingPublisher) {
	clock := newFakeClock()
	pub := newRecordingPublisher()
	p := New(discharge.NewTracker(), Options{
		VendorID:  headset.VendorID,
		ProductID: headset.ProductID,
		Publisher: pub,
		Now:       clock.Now,
	})
	p.reader = headset.NewReader(dev)
	return p, clock, pub
}

func TestPoller_FirstTickIsCalculating(t *testing.T) {
	p, _, pub := newTestPoller(headset.NewMock(80))

	status, err := p.Tick()
	require.NoError(t, err)

	assert.Equal(t, 80, status.Percentage)
	assert.True(t, status.Connected)
	assert.Equal(t, types.StateCalculating, status.State)
	assert.Nil(t, status.TimeRemaining)
	assert.Empty(t, p.History())

	published := pub.named(events.BatteryStatus)
	require.Len(t, published, 1)
	got, err := events.DecodeAs[types.Status](published[0])
	require.NoError(t, err)
	assert.Equal(t, 80, got.Percentage)
	assert.Equal(t, types.StateCalculating, got.State)
}

func TestPoller_SingleDrop(t *testing.T) {
	p, clock, pub := newTestPoller(headset.NewMock(80, 79))

	_, err := p.Tick()
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	status, err := p.Tick()
	require.NoError(t, err)

	history := p.History()
	require.Len(t, history, 1)
	assert.Equal(t, 10*time.Second, history[0].Interval)

	require.NotNil(t, status.AverageIntervalPerPercent)
	require.NotNil(t, status.TimeRemaining)
	assert.Equal(t, 10*time.Second, *status.AverageIntervalPerPercent)
	assert.Equal(t, 790*time.Second, *status.TimeRemaining)
	assert.Equal(t, types.StateEstimating, status.State)

	drops := pub.named(events.DischargeRecorded)
	require.Len(t, drops, 1)
	e, err := events.DecodeAs[discharge.Event](drops[0])
	require.NoError(t, err)
	assert.Equal(t, 80, e.From)
	assert.Equal(t, 79, e.To)
}

func TestPoller_DisconnectAndReconnect(t *testing.T) {
	m := headset.NewMock(100, 99, 98, 97, 96, 95)
	p, clock, _ := newTestPoller(m)

	for i := 0; i < 6; i++ {
		_, err := p.Tick()
		require.NoError(t, err)
		clock.Advance(8 * time.Second)
	}
	require.Len(t, p.History(), 5)

	// Script exhausted: the read returns no data.
	status, err := p.Tick()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, types.StateDisconnected, status.State)
	assert.Nil(t, status.TimeRemaining)
	assert.Len(t, p.History(), 5)

	clock.Advance(8 * time.Second)
	m.QueueBattery(95)
	status, err = p.Tick()
	require.NoError(t, err)
	assert.Equal(t, 95, status.Percentage)
	assert.Len(t, p.History(), 5)

	clock.Advance(8 * time.Second)
	m.QueueBattery(97)
	_, err = p.Tick()
	require.NoError(t, err)
	assert.Len(t, p.History(), 5)

	for _, e := range p.History() {
		assert.Equal(t, 8*time.Second, e.Interval)
	}
}

func TestPoller_TickSkipsWhileInFlight(t *testing.T) {
	m := headset.NewMock(70)
	p, _, pub := newTestPoller(m)

	entered, release := m.Block()
	done := make(chan types.Status)
	go func() {
		s, _ := p.Tick()
		done <- s
	}()

	<-entered
	_, err := p.Tick()
	assert.ErrorIs(t, err, ErrTickInFlight)

	release()
	s := <-done
	assert.Equal(t, 70, s.Percentage)
	assert.Len(t, m.Writes(), 1)
	assert.Len(t, pub.named(events.BatteryStatus), 1)
}

func TestPoller_TickBeforeOpen(t *testing.T) {
	p := New(discharge.NewTracker(), Options{})
	_, err := p.Tick()
	assert.ErrorIs(t, err, ErrNotOpen)

	_, ok := p.Last()
	assert.False(t, ok)
}

func TestPoller_RunDeviceMissing(t *testing.T) {
	pub := newRecordingPublisher()
	p := New(discharge.NewTracker(), Options{
		VendorID:  headset.VendorID,
		ProductID: headset.ProductID,
		Publisher: pub,
	})

	opens := 0
	err := p.Run(context.Background(), func() (headset.Device, error) {
		opens++
		return nil, headset.ErrDeviceNotFound
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, headset.ErrDeviceNotFound))
	assert.Equal(t, 1, opens)

	missing := pub.named(events.DeviceMissing)
	require.Len(t, missing, 1)
	payload, err := events.DecodeAs[events.DeviceMissingEvent](missing[0])
	require.NoError(t, err)
	assert.Equal(t, headset.ProductID, payload.ProductID)
	assert.Empty(t, pub.named(events.BatteryStatus))

	_, err = p.Tick()
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestPoller_RunPollsUntilCancelled(t *testing.T) {
	m := headset.NewMock()
	for i := 0; i < 1000; i++ {
		m.QueueBattery(64)
	}
	pub := newRecordingPublisher()
	p := New(discharge.NewTracker(), Options{
		PollInterval: func() time.Duration { return 10 * time.Millisecond },
		Publisher:    pub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- p.Run(ctx, func() (headset.Device, error) { return m, nil })
	}()

	for seen := 0; seen < 2; {
		select {
		case ev := <-pub.notify:
			if ev.Name == events.BatteryStatus {
				seen++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("no status published")
		}
	}
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.True(t, m.Closed())
	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, 64, last.Percentage)

	_, err := p.Tick()
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestPoller_WindowSizeOption(t *testing.T) {
	m := headset.NewMock(50, 49, 48)
	clock := newFakeClock()
	p := New(discharge.NewTracker(), Options{
		WindowSize: func() int { return 1 },
		Now:        clock.Now,
	})
	p.reader = headset.NewReader(m)

	p.Tick()
	clock.Advance(time.Minute)
	p.Tick()
	clock.Advance(20 * time.Second)
	status, _ := p.Tick()

	require.NotNil(t, status.AverageIntervalPerPercent)
	assert.Equal(t, 20*time.Second, *status.AverageIntervalPerPercent)
	assert.Equal(t, 1, status.Samples)
}

func TestPoller_LastVisibleMeansTickFinished(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := headset.NewMock(90, 90)
		clock := newFakeClock()
		p := New(discharge.NewTracker(), Options{
			PollInterval: func() time.Duration { return time.Hour },
			Now:          clock.Now,
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = p.Run(ctx, func() (headset.Device, error) { return m, nil })
		}()

		require.Eventually(t, func() bool {
			_, ok := p.Last()
			return ok
		}, 5*time.Second, time.Millisecond)

		clock.Advance(time.Second)
		_, err := p.Tick()
		require.NoError(t, err)

		cancel()
		<-done
	}
}
