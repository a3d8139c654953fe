package table

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/cloudmirror/synccache/config"
	"github.com/cloudmirror/synccache/crypt"
	"github.com/cloudmirror/synccache/storage"
)

// saltFile holds the master-key salt inside the data directory.
const saltFile = "salt"

// Open opens a cache session: it validates the configuration, derives the
// session keys from the password, and opens the bbolt backend under the
// data directory. The salt is created on first open and reused afterwards.
func Open(cfg config.Config, password string) (*Table, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	salt, err := loadOrCreateSalt(filepath.Join(cfg.DataDir, saltFile))
	if err != nil {
		return nil, err
	}

	master, err := crypt.MasterKeyFromPassword(password, salt)
	if err != nil {
		return nil, err
	}
	ks, err := crypt.SessionKeys(master)
	if err != nil {
		return nil, err
	}
	codec, err := crypt.NewCodec(ks)
	if err != nil {
		return nil, err
	}

	backend, err := storage.OpenBolt(filepath.Join(cfg.DataDir, cfg.DBFile))
	if err != nil {
		return nil, err
	}

	logger := log.New()
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err == nil {
		logger.SetLevel(lvl)
	}

	return newWithLogger(backend, codec, logger), nil
}

// loadOrCreateSalt reads the salt file, creating it with a fresh salt on
// first use.
func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != crypt.SaltLen {
			return nil, fmt.Errorf("table: salt file %s: %w", path, crypt.ErrInvalidSaltLen)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("table: read salt: %w", err)
	}

	salt, err = crypt.NewSalt()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("table: create data directory: %w", err)
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, fmt.Errorf("table: write salt: %w", err)
	}
	return salt, nil
}
