// Package pgtest starts a disposable PostgreSQL container with pgvector for
// integration tests. Tests call Start and are skipped automatically when no
// docker daemon is reachable.
package pgtest

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgImage    = "pgvector/pgvector:pg16"
	pgPassword = "pgtest"
	pgDatabase = "quarry_test"
)

// Start launches a postgres container and returns a pooled connection to
// it. The container and pool are removed via t.Cleanup. When the docker
// daemon is unreachable the test is skipped.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		t.Skipf("docker daemon unreachable: %v", err)
	}
	t.Cleanup(func() { cli.Close() })

	pullImage(ctx, t, cli)

	port := nat.Port("5432/tcp")
	created, err := cli.ContainerCreate(ctx,
		&container.Config{
			Image: pgImage,
			Env: []string{
				"POSTGRES_PASSWORD=" + pgPassword,
				"POSTGRES_DB=" + pgDatabase,
			},
			ExposedPorts: nat.PortSet{port: struct{}{}},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{
				port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}},
			},
			AutoRemove: true,
		},
		nil, nil, "")
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	t.Cleanup(func() {
		timeout := 5
		cli.ContainerStop(context.Background(), created.ID, container.StopOptions{Timeout: &timeout})
	})

	if err := cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		t.Fatalf("start container: %v", err)
	}

	inspected, err := cli.ContainerInspect(ctx, created.ID)
	if err != nil {
		t.Fatalf("inspect container: %v", err)
	}
	bindings := inspected.NetworkSettings.Ports[port]
	if len(bindings) == 0 {
		t.Fatalf("no host port bound for %s", port)
	}
	dsn := fmt.Sprintf("postgres://postgres:%s@127.0.0.1:%s/%s?sslmode=disable",
		pgPassword, bindings[0].HostPort, pgDatabase)

	pool := waitForPostgres(t, dsn)
	t.Cleanup(pool.Close)
	return pool
}

func pullImage(ctx context.Context, t *testing.T, cli *client.Client) {
	t.Helper()
	rc, err := cli.ImagePull(ctx, pgImage, image.PullOptions{})
	if err != nil {
		// The image may already be present locally.
		if _, _, inspectErr := cli.ImageInspectWithRaw(ctx, pgImage); inspectErr != nil {
			t.Skipf("pull %s: %v", pgImage, err)
		}
		return
	}
	defer rc.Close()
	io.Copy(io.Discard, rc)
}

// waitForPostgres polls until the server accepts connections.
func waitForPostgres(t *testing.T, dsn string) *pgxpool.Pool {
	t.Helper()
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				cancel()
				return pool
			}
			pool.Close()
		}
		cancel()
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("postgres at %s never became ready", dsn)
	return nil
}
