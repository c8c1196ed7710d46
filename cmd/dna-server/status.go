package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dna-engine/dna/api/dnapb"
)

var statusAddress string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running dna-server's ingestion watermarks over gRPC",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddress, "address", "localhost:9090", "gRPC address of the running dna-server")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(statusAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", statusAddress, err)
	}
	defer conn.Close()

	client := dnapb.NewStreamServiceClient(conn)
	resp, err := client.Status(ctx, &dnapb.StatusRequest{})
	if err != nil {
		return fmt.Errorf("status rpc: %w", err)
	}

	fmt.Printf("current_head:   %d\n", resp.CurrentHead.GetNumber())
	fmt.Printf("last_ingested:  %d\n", resp.LastIngested.GetNumber())
	fmt.Printf("finalized:      %d\n", resp.Finalized.GetNumber())
	fmt.Printf("starting_block: %d\n", resp.StartingBlock)
	return nil
}
