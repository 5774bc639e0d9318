package whatsmeow

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/ports"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// Client wraps one whatsmeow connection.
type Client struct {
	cli     *whatsmeow.Client
	db      *sql.DB
	browser Browser

	mu      sync.RWMutex
	credsFn func(domain.Credentials)
	connFn  func(domain.ConnectionUpdate)

	closeOnce sync.Once
}

var _ ports.Client = (*Client)(nil)

// Connect publishes the initial credentials and opens the websocket.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.emitCredentials()
	c.emitConnection(domain.ConnectionUpdate{Status: domain.StatusConnecting})
	return c.cli.Connect()
}

// Disconnect closes the websocket and the session database.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		c.cli.RemoveEventHandlers()
		c.cli.Disconnect()
		_ = c.db.Close()
	})
}

// Registered reports whether the device is already paired.
func (c *Client) Registered() bool {
	return c.cli.Store.ID != nil
}

// RequestPairingCode links via phone number instead of a QR code.
func (c *Client) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	return c.cli.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, c.browser.DisplayName)
}

// SendText sends a plain conversation message.
func (c *Client) SendText(ctx context.Context, to string, text string) error {
	jid, err := parseRecipient(to)
	if err != nil {
		return err
	}
	_, err = c.cli.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	return err
}

// OnCredentialsUpdate registers the credentials handler.
func (c *Client) OnCredentialsUpdate(fn func(domain.Credentials)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credsFn = fn
}

// OnConnectionUpdate registers the connection handler.
func (c *Client) OnConnectionUpdate(fn func(domain.ConnectionUpdate)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connFn = fn
}

// handle is the whatsmeow event handler.
func (c *Client) handle(evt any) {
	if updatesCredentials(evt) {
		c.emitCredentials()
	}
	if u, ok := translate(evt); ok {
		c.emitConnection(u)
	}
}

func (c *Client) emitCredentials() {
	c.mu.RLock()
	fn := c.credsFn
	c.mu.RUnlock()
	if fn != nil {
		fn(snapshot(c.cli.Store))
	}
}

func (c *Client) emitConnection(u domain.ConnectionUpdate) {
	c.mu.RLock()
	fn := c.connFn
	c.mu.RUnlock()
	if fn != nil {
		fn(u)
	}
}

// parseRecipient turns a normalized identity into a non-device JID.
func parseRecipient(to string) (types.JID, error) {
	jid, err := types.ParseJID(to)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	if jid.User == "" {
		return types.JID{}, fmt.Errorf("invalid recipient %q: empty user", to)
	}
	return jid.ToNonAD(), nil
}
