// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/xlsx2pdf/internal/container"
)

const (
	containerInDir  = "/in"
	containerOutDir = "/out"
	// containerProfile lives in the container's ephemeral filesystem.
	containerProfile = "file:///tmp/lo-profile"
)

// ContainerRenderer renders through LibreOffice inside a docker or podman
// image. The input directory is mounted read-only and a scratch directory
// receives the output.
type ContainerRenderer struct {
	runtime container.Runtime
	image   string
	bin     string
}

// NewContainerRenderer detects a container runtime and returns a renderer
// for image, running bin inside it.
func NewContainerRenderer(image, bin string) (*ContainerRenderer, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, err
	}
	return NewContainerRendererWith(rt, image, bin), nil
}

// NewContainerRendererWith uses the given runtime.
func NewContainerRendererWith(rt container.Runtime, image, bin string) *ContainerRenderer {
	return &ContainerRenderer{runtime: rt, image: image, bin: bin}
}

func (c *ContainerRenderer) Name() string { return "container/" + c.runtime.Name() }

func (c *ContainerRenderer) Check(context.Context) error {
	if err := c.runtime.ImageExists(c.image); err != nil {
		return fmt.Errorf("engine image not available in %s: %w", c.runtime.Name(), err)
	}
	return nil
}

func (c *ContainerRenderer) Render(ctx context.Context, src, dst string, opts SaveOptions) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", src, err)
	}

	scratch, err := os.MkdirTemp("", "xlsx2pdf-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	inner := containerInDir + "/" + filepath.Base(absSrc)
	args := append([]string{c.bin}, sofficeArgs(containerProfile, containerOutDir, inner, opts)...)

	err = c.runtime.Run(ctx, container.RunSpec{
		Image: c.image,
		Mounts: []container.Mount{
			{Host: filepath.Dir(absSrc), Container: containerInDir, ReadOnly: true},
			{Host: scratch, Container: containerOutDir},
		},
		Args: args,
	})
	if err != nil {
		return err
	}

	return moveFile(filepath.Join(scratch, renderedName(src)), dst)
}

func (c *ContainerRenderer) Close() error { return nil }
