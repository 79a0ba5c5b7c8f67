package headset

import (
	"errors"
	"sync"
)

var errMockClosed = errors.New("mock device closed")

// MockFrame is one scripted response of a MockDevice.
type MockFrame struct {
	Data []byte
	Err  error
}

// MockDevice is an in-memory Device with scripted responses. When the script
// runs out, reads return no data, which the Reader treats as disconnected.
type MockDevice struct {
	mu       sync.Mutex
	frames   []MockFrame
	writes   [][]byte
	writeErr error
	closed   bool

	gate    chan struct{}
	entered chan struct{}
}

// NewMock returns a MockDevice that answers the given percentages in order.
func NewMock(percentages ...byte) *MockDevice {
	m := &MockDevice{}
	for _, p := range percentages {
		m.QueueBattery(p)
	}
	return m
}

// QueueBattery appends a well-formed response carrying p.
func (m *MockDevice) QueueBattery(p byte) {
	m.QueueFrame([]byte{batteryRequest[0], batteryRequest[1], p, 0x00}, nil)
}

// QueueFrame appends a raw response.
func (m *MockDevice) QueueFrame(data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frames = append(m.frames, MockFrame{Data: data, Err: err})
}

// SetWriteError makes every subsequent write fail with err.
func (m *MockDevice) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeErr = err
}

// Block makes the next reads wait until release is called. entered is
// closed once a read is waiting.
func (m *MockDevice) Block() (entered <-chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gate = make(chan struct{})
	m.entered = make(chan struct{})
	gate := m.gate

	var once sync.Once
	return m.entered, func() { once.Do(func() { close(gate) }) }
}

// Writes returns a copy of everything written so far.
func (m *MockDevice) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Closed reports whether Close was called.
func (m *MockDevice) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *MockDevice) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errMockClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	m.writes = append(m.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (m *MockDevice) Read(p []byte) (int, error) {
	m.mu.Lock()
	gate, entered := m.gate, m.entered
	m.entered = nil
	m.mu.Unlock()

	if gate != nil {
		if entered != nil {
			close(entered)
		}
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errMockClosed
	}
	if len(m.frames) == 0 {
		return 0, nil
	}

	f := m.frames[0]
	m.frames = m.frames[1:]
	if f.Err != nil {
		return 0, f.Err
	}

	return copy(p, f.Data), nil
}

func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
