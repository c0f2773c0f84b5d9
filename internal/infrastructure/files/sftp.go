package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pkg/sftp"
	"github.com/tracecmd/backend/internal/infrastructure/remote"
)

var ErrRemoteUnavailable = errors.New("storage: remote store unavailable")

// SFTPFileManager checks and deletes output artifacts on a remote host.
// Each call opens its own connection.
type SFTPFileManager struct {
	client  *remote.SSHClient
	timeout time.Duration
}

func NewSFTPFileManager(client *remote.SSHClient, timeout time.Duration) *SFTPFileManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SFTPFileManager{client: client, timeout: timeout}
}

func (m *SFTPFileManager) withClient(fn func(c *sftp.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	conn, err := m.client.ConnectWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer conn.Close()

	sftpClient, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer sftpClient.Close()

	return fn(sftpClient)
}

func (m *SFTPFileManager) FileExist(path string) (bool, error) {
	if path == "" {
		return false, ErrPathEmpty
	}
	var exists bool
	err := m.withClient(func(c *sftp.Client) error {
		_, err := c.Stat(path)
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	})
	return exists, err
}

func (m *SFTPFileManager) DeleteFile(path string) error {
	if path == "" {
		return ErrPathEmpty
	}
	if path == "/" {
		return ErrPathIsRoot
	}
	return m.withClient(func(c *sftp.Client) error {
		info, err := c.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			if err := c.Remove(path); err != nil {
				return fmt.Errorf("failed to delete %s: %w", path, err)
			}
			return nil
		}
		return removeTree(c, path)
	})
}

// removeTree deletes files first, then directories deepest first
func removeTree(c *sftp.Client, root string) error {
	var dirs []string
	walker := c.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return fmt.Errorf("failed to walk %s: %w", walker.Path(), err)
		}
		if walker.Stat().IsDir() {
			dirs = append(dirs, walker.Path())
			continue
		}
		if err := c.Remove(walker.Path()); err != nil {
			return fmt.Errorf("failed to delete %s: %w", walker.Path(), err)
		}
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := c.RemoveDirectory(dirs[i]); err != nil {
			return fmt.Errorf("failed to delete %s: %w", dirs[i], err)
		}
	}
	return nil
}
