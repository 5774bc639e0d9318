package whatsmeow

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/aretw0/pairgate/internal/logging"
	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/ports"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

// DatabaseFile holds the library's key material inside a session directory.
const DatabaseFile = "session.db"

// Browser is the client identity shown on the phone's linked devices list.
type Browser struct {
	OS          string
	OSVersion   [3]uint32
	DisplayName string
}

// DefaultBrowser mimics a Chrome session on Ubuntu.
func DefaultBrowser() Browser {
	return Browser{
		OS:          "Ubuntu",
		OSVersion:   [3]uint32{20, 0, 4},
		DisplayName: "Chrome (Linux)",
	}
}

// Factory builds whatsmeow clients.
type Factory struct {
	browser       Browser
	httpClient    *http.Client
	logger        *slog.Logger
	protocolLevel string

	propsOnce sync.Once
}

// Option configures the Factory.
type Option func(*Factory)

// WithBrowser overrides the advertised browser identity.
func WithBrowser(b Browser) Option {
	return func(f *Factory) {
		if b.OS != "" {
			f.browser.OS = b.OS
		}
		if b.OSVersion != [3]uint32{} {
			f.browser.OSVersion = b.OSVersion
		}
		if b.DisplayName != "" {
			f.browser.DisplayName = b.DisplayName
		}
	}
}

// WithHTTPClient sets the client used for version discovery.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Factory) {
		f.httpClient = c
	}
}

// WithLogger sets the logger that receives library logs.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithProtocolLogLevel sets the library log level ("silent" by default).
func WithProtocolLogLevel(level string) Option {
	return func(f *Factory) {
		f.protocolLevel = level
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		browser:       DefaultBrowser(),
		httpClient:    http.DefaultClient,
		logger:        logging.NewNop(),
		protocolLevel: logging.LevelSilent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ ports.ClientFactory = (*Factory)(nil)

// LatestVersion asks the web client endpoint for the current version.
func (f *Factory) LatestVersion(ctx context.Context) (domain.ProtocolVersion, error) {
	v, err := whatsmeow.GetLatestVersion(ctx, f.httpClient)
	if err != nil {
		return domain.ProtocolVersion{}, fmt.Errorf("failed to fetch latest version: %w", err)
	}
	return domain.ProtocolVersion(*v), nil
}

// NewClient opens (or initializes) the auth state in dir and returns a client for it.
func (f *Factory) NewClient(ctx context.Context, dir string, version domain.ProtocolVersion) (ports.Client, error) {
	f.propsOnce.Do(func() {
		// Device properties are process-wide in whatsmeow.
		store.SetOSInfo(f.browser.OS, f.browser.OSVersion)
		store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	})
	if !version.IsZero() {
		store.SetWAVersion(store.WAVersionContainer(version))
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(dir, DatabaseFile))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	container := sqlstore.NewWithDB(db, "sqlite3", logging.Protocol(f.logger, "Database", f.protocolLevel))
	if err := container.Upgrade(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to upgrade session database: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	cli := whatsmeow.NewClient(device, logging.Protocol(f.logger, "Client", f.protocolLevel))
	cli.EnableAutoReconnect = false

	c := &Client{
		cli:     cli,
		db:      db,
		browser: f.browser,
	}
	cli.AddEventHandler(c.handle)
	return c, nil
}
