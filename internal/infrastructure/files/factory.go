package files

import (
	"fmt"
	"os"

	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/infrastructure/remote"
	"github.com/tracecmd/backend/pkg/utils/crypto"
)

// New builds the FileManager selected by storage.mode
func New(cfg config.StorageConfig, encryptionKey string) (ports.FileManager, error) {
	switch cfg.Mode {
	case "", config.StorageModeLocal:
		return NewLocalFileManager(cfg.AllowedRoots...), nil
	case config.StorageModeSFTP:
		sshCfg := remote.SSHConfig{
			Host:       cfg.SFTP.Host,
			Port:       cfg.SFTP.Port,
			User:       cfg.SFTP.User,
			Timeout:    cfg.SFTP.Timeout,
			MaxRetries: cfg.SFTP.MaxRetries,
		}
		sshCfg.Password = cfg.SFTP.Password
		if crypto.IsSealed(cfg.SFTP.Password) {
			password, err := crypto.Decrypt(cfg.SFTP.Password, encryptionKey)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt sftp password: %w", err)
			}
			sshCfg.Password = password
		}
		if cfg.SFTP.PrivateKeyPath != "" {
			key, err := os.ReadFile(cfg.SFTP.PrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read sftp private key: %w", err)
			}
			sshCfg.PrivateKey = string(key)
		}
		return NewSFTPFileManager(remote.NewSSHClient(sshCfg), cfg.SFTP.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
	}
}
