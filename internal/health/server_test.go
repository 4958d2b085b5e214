package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func waitForStatus(t *testing.T, client grpc_health_v1.HealthClient, service string, want grpc_health_v1.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && resp.GetStatus() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("service %q never reached %s (last: %v, %v)", service, want, resp.GetStatus(), err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestServerFlipsWithProbe(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	srv, err := New("127.0.0.1:0", 50*time.Millisecond, Probe{
		Service: "loanbot.Backend",
		Check: func(context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("down")
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	waitForStatus(t, client, "", grpc_health_v1.HealthCheckResponse_SERVING)
	waitForStatus(t, client, "loanbot.Backend", grpc_health_v1.HealthCheckResponse_SERVING)

	healthy.Store(false)
	waitForStatus(t, client, "", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	waitForStatus(t, client, "loanbot.Backend", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
