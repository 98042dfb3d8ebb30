package database

import (
	"context"
	"fmt"
	"time"

	"media_share_service/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

// CreateGRPCClient 建立 grpc client 並等待連線 READY
func CreateGRPCClient(ctx context.Context, grpcAddr string) (*grpc.ClientConn, error) {
	client, err := grpc.Dial(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", grpcAddr, err)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		state := client.GetState()
		logger.Log.Debug("grpc connection state", zap.String("addr", grpcAddr), zap.String("state", state.String()))
		switch state {
		case connectivity.Ready:
			return client, nil
		case connectivity.Idle:
			client.Connect()
		}

		select {
		case <-ctx.Done():
			client.Close()
			return nil, fmt.Errorf("connection[%s] did not become READY: %w", grpcAddr, ctx.Err())
		case <-ticker.C:
		}
	}
}
