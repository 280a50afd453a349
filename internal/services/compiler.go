package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sort"
	"strings"

	"github.com/desertthunder/mindx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	CompilerPassthrough = "passthrough"
	CompilerRemote      = "remote"
	CompilerExec        = "exec"
)

// NewCompiler builds a [DescriptorCompiler] from configuration.
type NewCompiler func(cfg shared.CompilerConfig, hc *http.Client) (DescriptorCompiler, error)

// Compilers maps compiler.backend names to their factories.
var Compilers = map[string]NewCompiler{
	CompilerPassthrough: func(shared.CompilerConfig, *http.Client) (DescriptorCompiler, error) {
		return PassthroughCompiler{}, nil
	},
	CompilerRemote: func(cfg shared.CompilerConfig, hc *http.Client) (DescriptorCompiler, error) {
		return NewRemoteCompiler(cfg.Endpoint, cfg.RateLimit, hc)
	},
	CompilerExec: func(cfg shared.CompilerConfig, _ *http.Client) (DescriptorCompiler, error) {
		return NewExecCompiler(cfg.Command)
	},
}

// NewDescriptorCompiler looks up cfg.Backend in [Compilers]. An empty name selects passthrough.
func NewDescriptorCompiler(cfg shared.CompilerConfig, hc *http.Client) (DescriptorCompiler, error) {
	name := cfg.Backend
	if name == "" {
		name = CompilerPassthrough
	}

	factory, ok := Compilers[name]
	if !ok {
		names := make([]string, 0, len(Compilers))
		for n := range Compilers {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("%w: compiler %q (available: %s)", shared.ErrUnknownBackend, name, strings.Join(names, ", "))
	}
	return factory(cfg, hc)
}

// PassthroughCompiler returns the image bytes unchanged.
//
// It stands in for a real feature extractor so the rest of the pipeline can run end to end.
type PassthroughCompiler struct{}

// Compile returns a copy of image.
func (PassthroughCompiler) Compile(ctx context.Context, image []byte) ([]byte, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", shared.ErrCompilationFailed)
	}
	return bytes.Clone(image), nil
}

// RemoteCompiler posts the image to an HTTP endpoint and reads the descriptor from the response body.
type RemoteCompiler struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewRemoteCompiler creates a compiler calling endpoint at most rps times per second.
// A non-positive rps disables throttling.
func NewRemoteCompiler(endpoint string, rps float64, hc *http.Client) (*RemoteCompiler, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: compiler.endpoint is required for the remote compiler", shared.ErrInvalidConfig)
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &RemoteCompiler{
		endpoint: endpoint,
		client:   hc,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Compile waits for the rate limiter, then posts image and returns the response body.
func (r *RemoteCompiler) Compile(ctx context.Context, image []byte) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrCompilationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrCompilationFailed, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrCompilationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrCompilationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: compiler returned status %d: %s", shared.ErrCompilationFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: compiler returned an empty descriptor", shared.ErrCompilationFailed)
	}
	return body, nil
}

// ExecCompiler runs an external program with the image on stdin and reads the descriptor from stdout.
type ExecCompiler struct {
	command []string
}

// NewExecCompiler creates a compiler running command.
func NewExecCompiler(command []string) (*ExecCompiler, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("%w: compiler.command is required for the exec compiler", shared.ErrInvalidConfig)
	}
	return &ExecCompiler{command: command}, nil
}

// Compile runs the command with image on stdin and returns its stdout.
func (e *ExecCompiler) Compile(ctx context.Context, image []byte) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...)
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", shared.ErrCompilationFailed, e.command[0], err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s produced no output", shared.ErrCompilationFailed, e.command[0])
	}
	return stdout.Bytes(), nil
}
