package ports

import "context"

// ControlServer defines the interface for the remote-control server
type ControlServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// RotateToken replaces the access token and disconnects every authenticated client
	RotateToken() (string, error)

	// SetFolder switches the watched folder and notifies clients
	SetFolder(dir string)

	IsRunning() bool
}
