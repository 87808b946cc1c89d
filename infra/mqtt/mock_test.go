package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type subscription struct {
	topic   string
	qos     byte
	handler paho.MessageHandler
}

type publication struct {
	topic   string
	qos     byte
	payload string
}

// mockClient implements pahoClient for tests.
type mockClient struct {
	mu           sync.Mutex
	opts         *paho.ClientOptions
	connectToken *fakeToken
	subscribed   []subscription
	published    []publication
	publishErrs  []error
	disconnects  int
}

func (m *mockClient) IsConnected() bool { return true }

func (m *mockClient) Connect() paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectToken == nil {
		return doneToken(nil)
	}
	return m.connectToken
}

func (m *mockClient) Disconnect(uint) {
	m.mu.Lock()
	m.disconnects++
	m.mu.Unlock()
}

func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publication{topic, qos, payload.(string)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return doneToken(err)
	}
	return doneToken(nil)
}

func (m *mockClient) Subscribe(topic string, qos byte, h paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, subscription{topic, qos, h})
	return doneToken(nil)
}

func (m *mockClient) publications() []publication {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publication(nil), m.published...)
}

func (m *mockClient) disconnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnects
}

// loseConnection fires the connection lost handler registered on the options.
func (m *mockClient) loseConnection(err error) {
	m.opts.OnConnectionLost(nil, err)
}

// deliver invokes the handler subscribed to topic.
func (m *mockClient) deliver(topic, payload string) {
	m.mu.Lock()
	var h paho.MessageHandler
	for _, s := range m.subscribed {
		if s.topic == topic {
			h = s.handler
		}
	}
	m.mu.Unlock()
	if h != nil {
		h(nil, mockMessage{topic: topic, p: []byte(payload)})
	}
}

// installMock routes newMQTTClient to a fresh mockClient per call and
// returns a function listing the clients created so far.
func installMock(t *testing.T, prepare func(*mockClient)) func() []*mockClient {
	t.Helper()
	var (
		mu      sync.Mutex
		clients []*mockClient
	)
	newMQTTClient = func(o *paho.ClientOptions) pahoClient {
		mc := &mockClient{opts: o}
		if prepare != nil {
			prepare(mc)
		}
		mu.Lock()
		clients = append(clients, mc)
		mu.Unlock()
		return mc
	}
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
	return func() []*mockClient {
		mu.Lock()
		defer mu.Unlock()
		return append([]*mockClient(nil), clients...)
	}
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) complete(err error) {
	t.err = err
	close(t.done)
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
