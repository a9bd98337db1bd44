// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runFunc       func(name string, args []string, stdout, stderr io.Writer) error

	lastName string
	lastArgs []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunContext(_ context.Context, name string, args []string, stdout, stderr io.Writer) error {
	m.lastName = name
	m.lastArgs = args
	if m.runFunc != nil {
		return m.runFunc(name, args, stdout, stderr)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but daemon down",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	docker := newDockerRuntime(&mockExecutor{
		runnableCmds: map[string]bool{"docker image inspect libreoffice:latest": true},
	})
	assert.NoError(t, docker.ImageExists("libreoffice:latest"))

	err := docker.ImageExists("missing:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing:latest")

	podman := newPodmanRuntime(&mockExecutor{
		runnableCmds: map[string]bool{"podman image exists libreoffice:latest": true},
	})
	assert.NoError(t, podman.ImageExists("libreoffice:latest"))
}

func TestRun_BuildsArgs(t *testing.T) {
	exec := &mockExecutor{}
	rt := newDockerRuntime(exec)

	err := rt.Run(context.Background(), RunSpec{
		Image: "libreoffice:latest",
		Mounts: []Mount{
			{Host: "/data/in", Container: "/in", ReadOnly: true},
			{Host: "/tmp/out", Container: "/out"},
		},
		Args: []string{"soffice", "--headless"},
	})
	require.NoError(t, err)

	assert.Equal(t, "docker", exec.lastName)
	assert.Equal(t, []string{
		"run", "--rm",
		"-v", "/data/in:/in:ro",
		"-v", "/tmp/out:/out",
		"libreoffice:latest", "soffice", "--headless",
	}, exec.lastArgs)
}

func TestRun_PipesStdout(t *testing.T) {
	exec := &mockExecutor{
		runFunc: func(_ string, _ []string, stdout, _ io.Writer) error {
			_, _ = stdout.Write([]byte("convert /in/a.xlsx -> /out/a.pdf"))
			return nil
		},
	}
	rt := newPodmanRuntime(exec)

	var out bytes.Buffer
	require.NoError(t, rt.Run(context.Background(), RunSpec{Image: "img", Stdout: &out}))
	assert.Equal(t, "convert /in/a.xlsx -> /out/a.pdf", out.String())
	assert.Equal(t, "podman", exec.lastName)
}

func TestRun_FailureIncludesStderr(t *testing.T) {
	exec := &mockExecutor{
		runFunc: func(_ string, _ []string, _, stderr io.Writer) error {
			_, _ = stderr.Write([]byte("Error: source file could not be loaded\n"))
			return errors.New("exit status 1")
		},
	}
	rt := newDockerRuntime(exec)

	err := rt.Run(context.Background(), RunSpec{Image: "libreoffice:latest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "source file could not be loaded")
}
