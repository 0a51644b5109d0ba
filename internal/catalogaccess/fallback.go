package catalogaccess

import (
	"fmt"

	"tome/internal/catalog"
	"tome/internal/ipc"
)

// Session represents a catalog access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries IPC-backed access first, then falls back to direct
// store access.
func OpenWithFallback(
	dial func() (*ipc.Client, error),
	openStore func() (*catalog.Store, []string, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{
				Access: NewIPCAccess(client),
				close:  client.Close,
			}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open catalog store: no store opener configured")
	}
	store, stageOrder, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open catalog store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(store, stageOrder),
		close:  store.Close,
	}, nil
}
