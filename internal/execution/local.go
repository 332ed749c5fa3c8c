package execution

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creack/pty"
)

// localClient runs commands on the local machine through the shell.
type localClient struct{}

// NewLocalClient returns a client that executes on the local machine.
func NewLocalClient() Client {
	return &localClient{}
}

func (c *localClient) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Command) == "" {
		return Result{ExitCode: -1}, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", req.Command)
	if req.UsePTY {
		return runLocalWithPTY(cmd, req)
	}
	return runLocalPiped(cmd, req)
}

func runLocalPiped(cmd *exec.Cmd, req Request) (Result, error) {
	capture := newCaptureBuffer()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, err
	}

	dest := destWriter(req.Stdout, capture)
	var wg sync.WaitGroup
	wg.Go(func() {
		_, _ = io.Copy(dest, stdoutPipe)
	})
	wg.Go(func() {
		_, _ = io.Copy(dest, stderrPipe)
	})

	// Drain the pipes before Wait closes them.
	wg.Wait()
	err = cmd.Wait()
	return Result{Output: capture.String(), ExitCode: exitCode(err)}, err
}

func runLocalWithPTY(cmd *exec.Cmd, req Request) (Result, error) {
	capture := newCaptureBuffer()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer ptmx.Close()
	if os.Stdout != nil {
		_ = pty.InheritSize(os.Stdout, ptmx)
	}

	dest := destWriter(req.Stdout, capture)
	copyDone := make(chan struct{})
	go func() {
		_, _ = io.Copy(dest, ptmx)
		close(copyDone)
	}()

	err = cmd.Wait()
	<-copyDone
	return Result{Output: capture.String(), ExitCode: exitCode(err)}, err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Fetch copies a file on the local machine.
func (c *localClient) Fetch(ctx context.Context, remotePath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return exec.CommandContext(ctx, "cp", remotePath, localPath).Run()
}

// Upload copies a file on the local machine.
func (c *localClient) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := os.MkdirAll(filepath.Dir(remotePath), 0755); err != nil {
		return err
	}
	return exec.CommandContext(ctx, "cp", localPath, remotePath).Run()
}

func (c *localClient) Close() error {
	return nil
}
