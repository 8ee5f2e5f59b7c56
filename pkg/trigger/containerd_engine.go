package trigger

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
)

// DefaultNamespace is the containerd namespace moss's trigger containers
// run under.
const DefaultNamespace = "moss"

// DefaultSocketPath is the default containerd socket.
const DefaultSocketPath = "/run/containerd/containerd.sock"

// ContainerdEngine runs triggers inside containerd containers whose rootfs
// is the staging usr/ tree directly — no image pull, no snapshot, since
// the tree already exists on disk and trigger programs run from within it.
type ContainerdEngine struct {
	client    *containerd.Client
	namespace string
}

// NewContainerdEngine connects to the containerd socket at socketPath
// (DefaultSocketPath if empty).
func NewContainerdEngine(socketPath string) (*ContainerdEngine, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("trigger: connect to containerd: %w", err)
	}
	return &ContainerdEngine{client: client, namespace: DefaultNamespace}, nil
}

func (e *ContainerdEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// RunOnce creates a container rooted at rootfsPath, runs t to completion,
// and tears the container and its task down before returning.
func (e *ContainerdEngine) RunOnce(ctx context.Context, id, rootfsPath string, t Trigger) (int, error) {
	ctx = namespaces.WithNamespace(ctx, e.namespace)

	args := append([]string{filepath.Join("/", t.Program)}, t.Args...)
	specOpts := []oci.SpecOpts{
		oci.WithRootFSPath(rootfsPath),
		oci.WithProcessArgs(args...),
		oci.WithHostNamespace("network"), // triggers never need network isolation, only filesystem isolation
	}

	ctr, err := e.client.NewContainer(ctx, id, containerd.WithNewSpec(specOpts...))
	if err != nil {
		return -1, fmt.Errorf("trigger: create container: %w", err)
	}
	defer ctr.Delete(ctx)

	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return -1, fmt.Errorf("trigger: create task: %w", err)
	}
	defer task.Delete(ctx)

	statusC, err := task.Wait(ctx)
	if err != nil {
		return -1, fmt.Errorf("trigger: wait task: %w", err)
	}

	if err := task.Start(ctx); err != nil {
		return -1, fmt.Errorf("trigger: start task: %w", err)
	}

	status := <-statusC
	code, _, err := status.Result()
	if err != nil {
		return -1, fmt.Errorf("trigger: task result: %w", err)
	}
	return int(code), nil
}
