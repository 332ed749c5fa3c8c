// Package vault bootstraps the vault application of a rados deployment:
// initialise once, persist the unseal material, unseal every unit and
// authorize the charm against the vault API.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/canonical/ceph-bench/internal/juju"
)

// ControlPlane is the slice of the model client the bootstrap needs.
// Satisfied by *juju.Client.
type ControlPlane interface {
	Exec(ctx context.Context, unit, command string) (string, error)
	Units(ctx context.Context, application string) ([]string, error)
	RunAction(ctx context.Context, unit, action string, params map[string]any) (*juju.ActionResult, error)
}

// Credentials is the unseal material produced by vault initialisation.
type Credentials struct {
	Keys      []string `json:"keys"`
	RootToken string   `json:"root_token"`
}

// Bootstrap drives the vault setup workflow.
type Bootstrap struct {
	cp          ControlPlane
	logger      *log.Logger
	application string
	credsPath   string
	keyShares   int
	keyThresh   int
}

// Options configures a vault bootstrap.
type Options struct {
	Application     string
	CredentialsFile string
	KeyShares       int
	KeyThreshold    int
}

// New returns a bootstrap for the given vault application.
func New(cp ControlPlane, logger *log.Logger, opts Options) *Bootstrap {
	return &Bootstrap{
		cp:          cp,
		logger:      logger,
		application: opts.Application,
		credsPath:   opts.CredentialsFile,
		keyShares:   opts.KeyShares,
		keyThresh:   opts.KeyThreshold,
	}
}

// Setup initialises vault if needed, unseals every unit and authorizes the
// charm. It is safe to run against an already bootstrapped deployment.
func (b *Bootstrap) Setup(ctx context.Context) error {
	units, err := b.cp.Units(ctx, b.application)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		return fmt.Errorf("no units found for application %s", b.application)
	}
	leader := units[0]

	creds, err := b.initialize(ctx, leader)
	if err != nil {
		return err
	}

	for _, unit := range units {
		if err := b.unseal(ctx, unit, creds); err != nil {
			return err
		}
	}

	return b.authorize(ctx, leader, creds)
}

// initialize runs operator init on the leader unless vault was already
// initialised, in which case stored credentials are reused.
func (b *Bootstrap) initialize(ctx context.Context, unit string) (*Credentials, error) {
	initialized, err := b.isInitialized(ctx, unit)
	if err != nil {
		return nil, err
	}
	if initialized {
		b.logger.Printf("vault already initialised, reusing stored credentials")
		return LoadCredentials(b.credsPath)
	}

	out, err := b.cp.Exec(ctx, unit, b.vaultCommand(
		"operator init -key-shares=%d -key-threshold=%d -format=json",
		b.keyShares, b.keyThresh))
	if err != nil {
		return nil, fmt.Errorf("initialising vault: %w", err)
	}

	var initOut struct {
		UnsealKeys []string `json:"unseal_keys_b64"`
		RootToken  string   `json:"root_token"`
	}
	if err := json.Unmarshal([]byte(out), &initOut); err != nil {
		return nil, fmt.Errorf("parsing vault init output: %w", err)
	}
	if len(initOut.UnsealKeys) == 0 || initOut.RootToken == "" {
		return nil, fmt.Errorf("vault init returned no credentials")
	}

	creds := &Credentials{Keys: initOut.UnsealKeys, RootToken: initOut.RootToken}
	if err := StoreCredentials(b.credsPath, creds); err != nil {
		return nil, err
	}
	b.logger.Printf("vault initialised, credentials stored in %s", b.credsPath)
	return creds, nil
}

// isInitialized reads the unit's vault status. vault status exits non-zero
// when sealed, so the output is inspected rather than the exit code.
func (b *Bootstrap) isInitialized(ctx context.Context, unit string) (bool, error) {
	out, err := b.cp.Exec(ctx, unit, b.vaultCommand("status -format=json"))
	if out == "" && err != nil {
		return false, fmt.Errorf("querying vault status: %w", err)
	}

	var status struct {
		Initialized bool `json:"initialized"`
	}
	if jsonStart := strings.Index(out, "{"); jsonStart >= 0 {
		out = out[jsonStart:]
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		return false, fmt.Errorf("parsing vault status: %w", err)
	}
	return status.Initialized, nil
}

// unseal submits unseal keys until the threshold is met.
func (b *Bootstrap) unseal(ctx context.Context, unit string, creds *Credentials) error {
	if len(creds.Keys) < b.keyThresh {
		return fmt.Errorf("need %d unseal keys, have %d", b.keyThresh, len(creds.Keys))
	}
	for _, key := range creds.Keys[:b.keyThresh] {
		if _, err := b.cp.Exec(ctx, unit, b.vaultCommand("operator unseal %s", key)); err != nil {
			return fmt.Errorf("unsealing %s: %w", unit, err)
		}
	}
	b.logger.Printf("unsealed %s", unit)
	return nil
}

// authorize runs the charm's authorize-charm action with the root token so
// the charm can manage its own vault policies.
func (b *Bootstrap) authorize(ctx context.Context, unit string, creds *Credentials) error {
	result, err := b.cp.RunAction(ctx, unit, "authorize-charm",
		map[string]any{"token": creds.RootToken})
	if err != nil {
		return fmt.Errorf("authorizing charm: %w", err)
	}
	if result.Status != juju.StatusCompleted {
		return fmt.Errorf("authorize-charm %s: %s", result.Status, result.Message)
	}
	b.logger.Printf("charm authorized against vault")
	return nil
}

// vaultCommand renders a vault CLI invocation with the local API address
// set, the way the charm's own hooks call it.
func (b *Bootstrap) vaultCommand(format string, args ...any) string {
	return "VAULT_ADDR=http://localhost:8200 /snap/bin/vault " + fmt.Sprintf(format, args...)
}

// StoreCredentials persists unseal material as JSON. The file is written
// mode 0600, it contains the root token.
func StoreCredentials(path string, creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling vault credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("storing vault credentials: %w", err)
	}
	return nil
}

// LoadCredentials reads previously stored unseal material.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vault credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing vault credentials: %w", err)
	}
	if len(creds.Keys) == 0 || creds.RootToken == "" {
		return nil, fmt.Errorf("vault credentials file %s is incomplete", path)
	}
	return &creds, nil
}
