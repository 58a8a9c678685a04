// Package hostkey provides the SSH server's host key, either from a local
// file or from Secret Manager.
package hostkey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/charmbracelet/keygen"
	"github.com/charmbracelet/log"
	"github.com/googleapis/gax-go/v2"
	"github.com/imjasonh/fusionchess/internal/config"
)

// SecretAccessor is the part of the Secret Manager client used here.
type SecretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Load returns the PEM host key selected by cfg.
func Load(ctx context.Context, cfg config.Config, logger *log.Logger) ([]byte, error) {
	if cfg.Local {
		return Local(cfg.HostKeyPath, logger)
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating Secret Manager client: %w", err)
	}
	defer client.Close()
	return FromSecret(ctx, client, cfg.HostKeySecret)
}

// Local reads the key at path, generating an Ed25519 key there first if
// none exists.
func Local(path string, logger *log.Logger) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading host key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	if _, err := keygen.New(path, keygen.WithKeyType(keygen.Ed25519), keygen.WithWrite()); err != nil {
		return nil, fmt.Errorf("generating host key: %w", err)
	}
	logger.Info("generated new SSH host key", "path", path)

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading generated host key: %w", err)
	}
	return data, nil
}

// FromSecret reads the host key stored in the secret version name.
func FromSecret(ctx context.Context, client SecretAccessor, name string) ([]byte, error) {
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("accessing secret version %s: %w", name, err)
	}
	if len(resp.GetPayload().GetData()) == 0 {
		return nil, fmt.Errorf("secret version %s is empty", name)
	}
	return resp.GetPayload().GetData(), nil
}
