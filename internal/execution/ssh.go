package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	scp "github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

const defaultSSHPort = 22

// Host describes an SSH endpoint for direct benchmark mode.
type Host struct {
	IP          string `yaml:"ip" json:"ip"`
	Port        int    `yaml:"port,omitempty" json:"port,omitempty"`
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty"`
	KeyFile     string `yaml:"key_file,omitempty" json:"key_file,omitempty"`
	KeyPassword string `yaml:"key_password,omitempty" json:"key_password,omitempty"`
}

type sshClient struct {
	client *ssh.Client
	host   Host
}

// NewSSHClient connects to the host and returns a client executing there.
func NewSSHClient(host Host) (Client, error) {
	client, err := connect(host)
	if err != nil {
		return nil, fmt.Errorf("creating ssh client: %w", err)
	}
	return &sshClient{client: client, host: host}, nil
}

func (c *sshClient) Close() error {
	return c.client.Close()
}

// Run executes a command on the remote host. When the context is cancelled
// the remote process receives SIGINT.
func (c *sshClient) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Command) == "" {
		return Result{ExitCode: -1}, errors.New("empty command")
	}

	session, err := c.client.NewSession()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("creating session: %w", err)
	}
	defer session.Close()

	if req.UsePTY {
		modes := ssh.TerminalModes{
			ssh.ECHO:          1,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		width, height := termSize()
		if err := session.RequestPty("xterm-256color", height, width, modes); err != nil {
			return Result{ExitCode: -1}, fmt.Errorf("requesting pty: %w", err)
		}
	}

	capture := newCaptureBuffer()
	dest := destWriter(req.Stdout, capture)

	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	var stderrPipe io.Reader
	if !req.UsePTY {
		stderrPipe, err = session.StderrPipe()
		if err != nil {
			return Result{ExitCode: -1}, err
		}
	}

	if err := session.Start(req.Command); err != nil {
		return Result{ExitCode: -1}, err
	}

	var wg sync.WaitGroup
	wg.Go(func() {
		_, _ = io.Copy(dest, stdoutPipe)
	})
	if stderrPipe != nil {
		wg.Go(func() {
			_, _ = io.Copy(dest, stderrPipe)
		})
	}

	waitChan := make(chan error, 1)
	go func() {
		waitChan <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGINT)
		wg.Wait()
		return Result{ExitCode: -1, Output: capture.String()}, ctx.Err()
	case err := <-waitChan:
		wg.Wait()
		return Result{Output: capture.String(), ExitCode: sshExitCode(err)}, err
	}
}

func sshExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return -1
}

// Fetch copies a file from the remote host to the local machine.
func (c *sshClient) Fetch(ctx context.Context, remotePath, localPath string) error {
	client, err := scp.NewClientBySSH(c.client)
	if err != nil {
		return fmt.Errorf("creating scp client: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating local file: %w", err)
	}
	defer file.Close()

	if err := client.CopyFromRemote(ctx, file, remotePath); err != nil {
		return fmt.Errorf("copying %s: %w", remotePath, err)
	}
	return nil
}

// Upload copies a local file to the remote host.
func (c *sshClient) Upload(ctx context.Context, localPath, remotePath string) error {
	client, err := scp.NewClientBySSH(c.client)
	if err != nil {
		return fmt.Errorf("creating scp client: %w", err)
	}
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local file: %w", err)
	}
	defer file.Close()

	if err := client.CopyFile(ctx, file, remotePath, "0755"); err != nil {
		return fmt.Errorf("uploading %s: %w", localPath, err)
	}
	return nil
}

func connect(host Host) (*ssh.Client, error) {
	var auth []ssh.AuthMethod
	if host.KeyFile != "" {
		keyData, err := os.ReadFile(expandTilde(host.KeyFile))
		if err != nil {
			return nil, err
		}
		var key ssh.Signer
		if host.KeyPassword != "" {
			key, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(host.KeyPassword))
		} else {
			key, err = ssh.ParsePrivateKey(keyData)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(key))
	}
	if host.Password != "" {
		auth = append(auth, ssh.Password(host.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("host has neither key_file nor password configured")
	}

	sshConfig := &ssh.ClientConfig{
		User:            host.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	port := host.Port
	if port == 0 {
		port = defaultSSHPort
	}
	return ssh.Dial("tcp", fmt.Sprintf("%s:%d", host.IP, port), sshConfig)
}

// expandTilde resolves ~ and environment variables in a path.
func expandTilde(path string) string {
	path = os.ExpandEnv(path)
	if path == "~" {
		return os.Getenv("HOME")
	}
	if strings.HasPrefix(path, "~/") {
		return os.Getenv("HOME") + path[1:]
	}
	return path
}

// termSize returns the local terminal size, with a fallback for pipes.
func termSize() (width, height int) {
	width, height = 80, 40
	if os.Stdout != nil && term.IsTerminal(int(os.Stdout.Fd())) {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			return w, h
		}
	}
	return width, height
}
