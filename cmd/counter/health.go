package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/client"
	"github.com/alfredjeanlab/suicounter/internal/server"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the counter service",
	GroupID: "system",
	Long: `Check the health of the counter service over HTTP, or with --grpc
over the standard gRPC health protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		useGRPC, _ := cmd.Flags().GetBool("grpc")
		service, _ := cmd.Flags().GetString("service")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if useGRPC {
			return grpcHealth(ctx, service)
		}

		resp, err := counterClient.Health(ctx)
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		if jsonOutput {
			if err := printJSON(resp); err != nil {
				return err
			}
		} else {
			fmt.Printf("Health:      %s\n", resp.Status)
			fmt.Printf("Panels:      %d\n", resp.Panels)
			fmt.Printf("SSE Clients: %d\n", resp.SSEClients)
		}
		if resp.Status != "ok" {
			return fmt.Errorf("unhealthy: %s", resp.Status)
		}
		return nil
	},
}

func grpcHealth(ctx context.Context, service string) error {
	c, err := client.NewGRPCClient(grpcAddr, authToken)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer c.Close()

	resp, err := c.Check(ctx, service)
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	if jsonOutput {
		data, err := protojson.MarshalOptions{Multiline: true, EmitUnpopulated: true}.Marshal(resp)
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("Health: %s\n", resp.GetStatus())
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("unhealthy: %s", resp.GetStatus())
	}
	return nil
}

func init() {
	healthCmd.Flags().Bool("grpc", false, "check over gRPC instead of HTTP")
	healthCmd.Flags().String("service", server.ServiceName, "gRPC service name to check")
	healthCmd.Flags().Duration("timeout", 5*time.Second, "request timeout")
}
