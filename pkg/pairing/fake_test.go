package pairing_test

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/ports"
)

// script describes how one fake client behaves.
type script struct {
	versionErr error
	newErr     error
	connectErr error
	pairErr    error
	registered bool
	code       string
	creds      []domain.Credentials
	updates    []domain.ConnectionUpdate
	sendPanic  bool
	blockPair  chan struct{} // RequestPairingCode waits for this (or ctx)
}

type sent struct {
	to   string
	text string
}

// FakeClient replays a script once connected.
type FakeClient struct {
	script script

	mu          sync.Mutex
	credsFn     func(domain.Credentials)
	connFn      func(domain.ConnectionUpdate)
	pairedPhone string
	messages    []sent
	disconnects int
}

var _ ports.Client = (*FakeClient)(nil)

func (c *FakeClient) Connect(ctx context.Context) error {
	if c.script.connectErr != nil {
		return c.script.connectErr
	}
	c.mu.Lock()
	credsFn, connFn := c.credsFn, c.connFn
	c.mu.Unlock()
	go func() {
		for _, cr := range c.script.creds {
			credsFn(cr)
		}
		for _, u := range c.script.updates {
			connFn(u)
		}
	}()
	return nil
}

func (c *FakeClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
}

func (c *FakeClient) Registered() bool { return c.script.registered }

func (c *FakeClient) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	c.mu.Lock()
	c.pairedPhone = phone
	c.mu.Unlock()
	if c.script.blockPair != nil {
		select {
		case <-c.script.blockPair:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if c.script.pairErr != nil {
		return "", c.script.pairErr
	}
	return c.script.code, nil
}

func (c *FakeClient) SendText(ctx context.Context, to string, text string) error {
	if c.script.sendPanic {
		panic("send exploded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, sent{to: to, text: text})
	return nil
}

func (c *FakeClient) OnCredentialsUpdate(fn func(domain.Credentials)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credsFn = fn
}

func (c *FakeClient) OnConnectionUpdate(fn func(domain.ConnectionUpdate)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connFn = fn
}

func (c *FakeClient) Messages() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.messages...)
}

func (c *FakeClient) PairedPhone() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pairedPhone
}

func (c *FakeClient) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// FakeFactory hands out one FakeClient per attempt. The last script repeats.
type FakeFactory struct {
	scripts []script

	mu      sync.Mutex
	clients []*FakeClient
	dirs    []string
}

var _ ports.ClientFactory = (*FakeFactory)(nil)

func (f *FakeFactory) next() script {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.dirs)
	if i >= len(f.scripts) {
		i = len(f.scripts) - 1
	}
	return f.scripts[i]
}

func (f *FakeFactory) LatestVersion(ctx context.Context) (domain.ProtocolVersion, error) {
	if err := f.next().versionErr; err != nil {
		return domain.ProtocolVersion{}, err
	}
	return domain.ProtocolVersion{2, 3000, 1027}, nil
}

func (f *FakeFactory) NewClient(ctx context.Context, dir string, version domain.ProtocolVersion) (ports.Client, error) {
	sc := f.next()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs = append(f.dirs, dir)
	if sc.newErr != nil {
		return nil, sc.newErr
	}
	if version.IsZero() {
		return nil, errors.New("missing version")
	}
	c := &FakeClient{script: sc}
	f.clients = append(f.clients, c)
	return c, nil
}

func (f *FakeFactory) Clients() []*FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeClient(nil), f.clients...)
}

// Attempts counts NewClient calls, failed ones included.
func (f *FakeFactory) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dirs)
}
