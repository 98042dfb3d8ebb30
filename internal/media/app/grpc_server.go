package app

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"
	"media_share_service/pkg/token"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// GRPCServiceName full service name
	GRPCServiceName = "mediapipeline.MediaPipeline"

	methodMergePost = "/" + GRPCServiceName + "/MergePost"
	methodGetJob    = "/" + GRPCServiceName + "/GetJob"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// MediaPipelineServer gRPC 介面, request/response 皆為 google.protobuf.Struct
type MediaPipelineServer interface {
	MergePost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// MediaPipelineServiceDesc 手寫的 service descriptor
var MediaPipelineServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*MediaPipelineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "MergePost", Handler: mergePostHandler},
		{MethodName: "GetJob", Handler: getJobHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mediapipeline.proto",
}

func mergePostHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaPipelineServer).MergePost(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodMergePost}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaPipelineServer).MergePost(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getJobHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaPipelineServer).GetJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetJob}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaPipelineServer).GetJob(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type grpcServer struct {
	useCase MediaUseCase
}

// NewGRPCServer MediaPipelineServer backed by MediaUseCase
func NewGRPCServer(useCase MediaUseCase) MediaPipelineServer {
	return &grpcServer{useCase: useCase}
}

// MergePost {post_id, title, publish} -> {job_id, state}
func (s *grpcServer) MergePost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	postID := fields["post_id"].GetStringValue()
	if postID == "" {
		return nil, status.Error(codes.InvalidArgument, "post_id is required")
	}

	userID, _ := ctx.Value(userIDKey).(string)
	job, err := s.useCase.EnqueueMerge(ctx, domain.MergeReq{
		PostID:  postID,
		UserID:  userID,
		Title:   fields["title"].GetStringValue(),
		Publish: fields["publish"].GetBoolValue(),
	})
	if err != nil {
		return nil, grpcError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"job_id": job.JobID,
		"state":  string(job.State),
	})
}

// GetJob {job_id} -> JobStatus
func (s *grpcServer) GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	jobID := in.GetFields()["job_id"].GetStringValue()
	if jobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job_id is required")
	}

	job, err := s.useCase.GetJob(ctx, jobID)
	if err != nil {
		return nil, grpcError(err)
	}

	warnings := make([]interface{}, 0, len(job.Warnings))
	for _, w := range job.Warnings {
		warnings = append(warnings, w)
	}
	return structpb.NewStruct(map[string]interface{}{
		"job_id":     job.JobID,
		"state":      string(job.State),
		"phase":      job.Phase,
		"error":      job.Error,
		"result_url": job.ResultURL,
		"warnings":   warnings,
		"updated_at": job.UpdatedAt.Format(time.RFC3339),
	})
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, ErrJobNotFound):
		return status.Error(codes.NotFound, err.Error())
	case domain.IsCallerError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsEngineUnavailable(err):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, domain.ErrFetchFailed):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// AuthInterceptor 驗證 metadata authorization: Bearer <jwt>, health check 不需要
func AuthInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	claims, err := token.ParseBearer(values[0])
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	start := time.Now()
	resp, err := handler(context.WithValue(ctx, userIDKey, claims.UserID), req)
	logger.Log.Debug("grpc call",
		zap.String("method", info.FullMethod),
		zap.String("user_id", claims.UserID),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return resp, err
}

// NewGRPC 註冊 MediaPipeline 與 health service
func NewGRPC(useCase MediaUseCase) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor))
	srv.RegisterService(&MediaPipelineServiceDesc, NewGRPCServer(useCase))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus(GRPCServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, healthSrv
}

// ServeGRPC blocks until the listener closes
func ServeGRPC(srv *grpc.Server, lis net.Listener) error {
	logger.Log.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	return srv.Serve(lis)
}

// MediaPipelineClient 呼叫 MediaPipeline 的 client
type MediaPipelineClient struct {
	conn grpc.ClientConnInterface
}

// NewMediaPipelineClient wrap a client connection
func NewMediaPipelineClient(conn grpc.ClientConnInterface) *MediaPipelineClient {
	return &MediaPipelineClient{conn: conn}
}

// MergePost call MergePost
func (c *MediaPipelineClient) MergePost(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodMergePost, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetJob call GetJob
func (c *MediaPipelineClient) GetJob(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodGetJob, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
