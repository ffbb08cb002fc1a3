package guardv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	AdminService_ListRecentSessions_FullMethodName = "/sessionguard.v1.AdminService/ListRecentSessions"
	AdminService_ListActiveSessions_FullMethodName = "/sessionguard.v1.AdminService/ListActiveSessions"
	AdminService_ListUserSessions_FullMethodName   = "/sessionguard.v1.AdminService/ListUserSessions"
	AdminService_GetUserSnapshot_FullMethodName    = "/sessionguard.v1.AdminService/GetUserSnapshot"
	AdminService_ListUserSnapshots_FullMethodName  = "/sessionguard.v1.AdminService/ListUserSnapshots"
	AdminService_GetDashboard_FullMethodName       = "/sessionguard.v1.AdminService/GetDashboard"
	AdminService_GetPeriodTime_FullMethodName      = "/sessionguard.v1.AdminService/GetPeriodTime"
	AdminService_ListActiveBlocks_FullMethodName   = "/sessionguard.v1.AdminService/ListActiveBlocks"
	AdminService_ListUserBlocks_FullMethodName     = "/sessionguard.v1.AdminService/ListUserBlocks"
	AdminService_CreateBlock_FullMethodName        = "/sessionguard.v1.AdminService/CreateBlock"
	AdminService_Unblock_FullMethodName            = "/sessionguard.v1.AdminService/Unblock"
	AdminService_GetPolicy_FullMethodName          = "/sessionguard.v1.AdminService/GetPolicy"
	AdminService_UpdatePolicy_FullMethodName       = "/sessionguard.v1.AdminService/UpdatePolicy"
	AdminService_ListPolicyHistory_FullMethodName  = "/sessionguard.v1.AdminService/ListPolicyHistory"
	AdminService_EvaluateUser_FullMethodName       = "/sessionguard.v1.AdminService/EvaluateUser"
	AdminService_ListAuditLogs_FullMethodName      = "/sessionguard.v1.AdminService/ListAuditLogs"
	AdminService_WatchChanges_FullMethodName       = "/sessionguard.v1.AdminService/WatchChanges"
)

// AdminServiceServer is the server API for AdminService: live monitoring, per-user statistics,
// block management and policy configuration for security operators.
type AdminServiceServer interface {
	ListRecentSessions(context.Context, *ListRecentSessionsRequest) (*ListRecentSessionsResponse, error)
	ListActiveSessions(context.Context, *ListActiveSessionsRequest) (*ListActiveSessionsResponse, error)
	ListUserSessions(context.Context, *ListUserSessionsRequest) (*ListUserSessionsResponse, error)
	GetUserSnapshot(context.Context, *GetUserSnapshotRequest) (*GetUserSnapshotResponse, error)
	ListUserSnapshots(context.Context, *ListUserSnapshotsRequest) (*ListUserSnapshotsResponse, error)
	GetDashboard(context.Context, *GetDashboardRequest) (*GetDashboardResponse, error)
	GetPeriodTime(context.Context, *GetPeriodTimeRequest) (*GetPeriodTimeResponse, error)
	ListActiveBlocks(context.Context, *ListActiveBlocksRequest) (*ListActiveBlocksResponse, error)
	ListUserBlocks(context.Context, *ListUserBlocksRequest) (*ListUserBlocksResponse, error)
	CreateBlock(context.Context, *CreateBlockRequest) (*CreateBlockResponse, error)
	Unblock(context.Context, *UnblockRequest) (*UnblockResponse, error)
	GetPolicy(context.Context, *GetPolicyRequest) (*GetPolicyResponse, error)
	UpdatePolicy(context.Context, *UpdatePolicyRequest) (*UpdatePolicyResponse, error)
	ListPolicyHistory(context.Context, *ListPolicyHistoryRequest) (*ListPolicyHistoryResponse, error)
	EvaluateUser(context.Context, *EvaluateUserRequest) (*EvaluateUserResponse, error)
	ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error)
	WatchChanges(*WatchChangesRequest, AdminService_WatchChangesServer) error
}

// AdminService_WatchChangesServer is the server side of the WatchChanges stream.
type AdminService_WatchChangesServer = grpc.ServerStreamingServer[ChangeEvent]

// AdminService_WatchChangesClient is the client side of the WatchChanges stream.
type AdminService_WatchChangesClient = grpc.ServerStreamingClient[ChangeEvent]

// UnimplementedAdminServiceServer returns Unimplemented for every method.
type UnimplementedAdminServiceServer struct{}

func (UnimplementedAdminServiceServer) ListRecentSessions(context.Context, *ListRecentSessionsRequest) (*ListRecentSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecentSessions not implemented")
}
func (UnimplementedAdminServiceServer) ListActiveSessions(context.Context, *ListActiveSessionsRequest) (*ListActiveSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListActiveSessions not implemented")
}
func (UnimplementedAdminServiceServer) ListUserSessions(context.Context, *ListUserSessionsRequest) (*ListUserSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListUserSessions not implemented")
}
func (UnimplementedAdminServiceServer) GetUserSnapshot(context.Context, *GetUserSnapshotRequest) (*GetUserSnapshotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUserSnapshot not implemented")
}
func (UnimplementedAdminServiceServer) ListUserSnapshots(context.Context, *ListUserSnapshotsRequest) (*ListUserSnapshotsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListUserSnapshots not implemented")
}
func (UnimplementedAdminServiceServer) GetDashboard(context.Context, *GetDashboardRequest) (*GetDashboardResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDashboard not implemented")
}
func (UnimplementedAdminServiceServer) GetPeriodTime(context.Context, *GetPeriodTimeRequest) (*GetPeriodTimeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPeriodTime not implemented")
}
func (UnimplementedAdminServiceServer) ListActiveBlocks(context.Context, *ListActiveBlocksRequest) (*ListActiveBlocksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListActiveBlocks not implemented")
}
func (UnimplementedAdminServiceServer) ListUserBlocks(context.Context, *ListUserBlocksRequest) (*ListUserBlocksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListUserBlocks not implemented")
}
func (UnimplementedAdminServiceServer) CreateBlock(context.Context, *CreateBlockRequest) (*CreateBlockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateBlock not implemented")
}
func (UnimplementedAdminServiceServer) Unblock(context.Context, *UnblockRequest) (*UnblockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Unblock not implemented")
}
func (UnimplementedAdminServiceServer) GetPolicy(context.Context, *GetPolicyRequest) (*GetPolicyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPolicy not implemented")
}
func (UnimplementedAdminServiceServer) UpdatePolicy(context.Context, *UpdatePolicyRequest) (*UpdatePolicyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdatePolicy not implemented")
}
func (UnimplementedAdminServiceServer) ListPolicyHistory(context.Context, *ListPolicyHistoryRequest) (*ListPolicyHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPolicyHistory not implemented")
}
func (UnimplementedAdminServiceServer) EvaluateUser(context.Context, *EvaluateUserRequest) (*EvaluateUserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method EvaluateUser not implemented")
}
func (UnimplementedAdminServiceServer) ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
}
func (UnimplementedAdminServiceServer) WatchChanges(*WatchChangesRequest, AdminService_WatchChangesServer) error {
	return status.Error(codes.Unimplemented, "method WatchChanges not implemented")
}

// RegisterAdminServiceServer registers srv with s.
func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&AdminService_ServiceDesc, srv)
}

func _AdminService_WatchChanges_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(WatchChangesRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AdminServiceServer).WatchChanges(in, &grpc.GenericServerStream[WatchChangesRequest, ChangeEvent]{ServerStream: stream})
}

// AdminService_ServiceDesc is the grpc.ServiceDesc for AdminService.
var AdminService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "sessionguard.v1.AdminService",
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRecentSessions", Handler: unary(AdminService_ListRecentSessions_FullMethodName, AdminServiceServer.ListRecentSessions)},
		{MethodName: "ListActiveSessions", Handler: unary(AdminService_ListActiveSessions_FullMethodName, AdminServiceServer.ListActiveSessions)},
		{MethodName: "ListUserSessions", Handler: unary(AdminService_ListUserSessions_FullMethodName, AdminServiceServer.ListUserSessions)},
		{MethodName: "GetUserSnapshot", Handler: unary(AdminService_GetUserSnapshot_FullMethodName, AdminServiceServer.GetUserSnapshot)},
		{MethodName: "ListUserSnapshots", Handler: unary(AdminService_ListUserSnapshots_FullMethodName, AdminServiceServer.ListUserSnapshots)},
		{MethodName: "GetDashboard", Handler: unary(AdminService_GetDashboard_FullMethodName, AdminServiceServer.GetDashboard)},
		{MethodName: "GetPeriodTime", Handler: unary(AdminService_GetPeriodTime_FullMethodName, AdminServiceServer.GetPeriodTime)},
		{MethodName: "ListActiveBlocks", Handler: unary(AdminService_ListActiveBlocks_FullMethodName, AdminServiceServer.ListActiveBlocks)},
		{MethodName: "ListUserBlocks", Handler: unary(AdminService_ListUserBlocks_FullMethodName, AdminServiceServer.ListUserBlocks)},
		{MethodName: "CreateBlock", Handler: unary(AdminService_CreateBlock_FullMethodName, AdminServiceServer.CreateBlock)},
		{MethodName: "Unblock", Handler: unary(AdminService_Unblock_FullMethodName, AdminServiceServer.Unblock)},
		{MethodName: "GetPolicy", Handler: unary(AdminService_GetPolicy_FullMethodName, AdminServiceServer.GetPolicy)},
		{MethodName: "UpdatePolicy", Handler: unary(AdminService_UpdatePolicy_FullMethodName, AdminServiceServer.UpdatePolicy)},
		{MethodName: "ListPolicyHistory", Handler: unary(AdminService_ListPolicyHistory_FullMethodName, AdminServiceServer.ListPolicyHistory)},
		{MethodName: "EvaluateUser", Handler: unary(AdminService_EvaluateUser_FullMethodName, AdminServiceServer.EvaluateUser)},
		{MethodName: "ListAuditLogs", Handler: unary(AdminService_ListAuditLogs_FullMethodName, AdminServiceServer.ListAuditLogs)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchChanges",
			Handler:       _AdminService_WatchChanges_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "sessionguard/v1/admin.json",
}

// AdminServiceClient is the client API for AdminService.
type AdminServiceClient interface {
	ListRecentSessions(ctx context.Context, in *ListRecentSessionsRequest, opts ...grpc.CallOption) (*ListRecentSessionsResponse, error)
	ListActiveSessions(ctx context.Context, in *ListActiveSessionsRequest, opts ...grpc.CallOption) (*ListActiveSessionsResponse, error)
	ListUserSessions(ctx context.Context, in *ListUserSessionsRequest, opts ...grpc.CallOption) (*ListUserSessionsResponse, error)
	GetUserSnapshot(ctx context.Context, in *GetUserSnapshotRequest, opts ...grpc.CallOption) (*GetUserSnapshotResponse, error)
	ListUserSnapshots(ctx context.Context, in *ListUserSnapshotsRequest, opts ...grpc.CallOption) (*ListUserSnapshotsResponse, error)
	GetDashboard(ctx context.Context, in *GetDashboardRequest, opts ...grpc.CallOption) (*GetDashboardResponse, error)
	GetPeriodTime(ctx context.Context, in *GetPeriodTimeRequest, opts ...grpc.CallOption) (*GetPeriodTimeResponse, error)
	ListActiveBlocks(ctx context.Context, in *ListActiveBlocksRequest, opts ...grpc.CallOption) (*ListActiveBlocksResponse, error)
	ListUserBlocks(ctx context.Context, in *ListUserBlocksRequest, opts ...grpc.CallOption) (*ListUserBlocksResponse, error)
	CreateBlock(ctx context.Context, in *CreateBlockRequest, opts ...grpc.CallOption) (*CreateBlockResponse, error)
	Unblock(ctx context.Context, in *UnblockRequest, opts ...grpc.CallOption) (*UnblockResponse, error)
	GetPolicy(ctx context.Context, in *GetPolicyRequest, opts ...grpc.CallOption) (*GetPolicyResponse, error)
	UpdatePolicy(ctx context.Context, in *UpdatePolicyRequest, opts ...grpc.CallOption) (*UpdatePolicyResponse, error)
	ListPolicyHistory(ctx context.Context, in *ListPolicyHistoryRequest, opts ...grpc.CallOption) (*ListPolicyHistoryResponse, error)
	EvaluateUser(ctx context.Context, in *EvaluateUserRequest, opts ...grpc.CallOption) (*EvaluateUserResponse, error)
	ListAuditLogs(ctx context.Context, in *ListAuditLogsRequest, opts ...grpc.CallOption) (*ListAuditLogsResponse, error)
	WatchChanges(ctx context.Context, in *WatchChangesRequest, opts ...grpc.CallOption) (AdminService_WatchChangesClient, error)
}

type adminServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAdminServiceClient returns a client that sends every call with the JSON codec.
func NewAdminServiceClient(cc grpc.ClientConnInterface) AdminServiceClient {
	return &adminServiceClient{cc}
}

func (c *adminServiceClient) ListRecentSessions(ctx context.Context, in *ListRecentSessionsRequest, opts ...grpc.CallOption) (*ListRecentSessionsResponse, error) {
	return invoke[ListRecentSessionsResponse](ctx, c.cc, AdminService_ListRecentSessions_FullMethodName, in, opts)
}

func (c *adminServiceClient) ListActiveSessions(ctx context.Context, in *ListActiveSessionsRequest, opts ...grpc.CallOption) (*ListActiveSessionsResponse, error) {
	return invoke[ListActiveSessionsResponse](ctx, c.cc, AdminService_ListActiveSessions_FullMethodName, in, opts)
}

func (c *adminServiceClient) ListUserSessions(ctx context.Context, in *ListUserSessionsRequest, opts ...grpc.CallOption) (*ListUserSessionsResponse, error) {
	return invoke[ListUserSessionsResponse](ctx, c.cc, AdminService_ListUserSessions_FullMethodName, in, opts)
}

func (c *adminServiceClient) GetUserSnapshot(ctx context.Context, in *GetUserSnapshotRequest, opts ...grpc.CallOption) (*GetUserSnapshotResponse, error) {
	return invoke[GetUserSnapshotResponse](ctx, c.cc, AdminService_GetUserSnapshot_FullMethodName, in, opts)
}

func (c *adminServiceClient) ListUserSnapshots(ctx context.Context, in *ListUserSnapshotsRequest, opts ...grpc.CallOption) (*ListUserSnapshotsResponse, error) {
	return invoke[ListUserSnapshotsResponse](ctx, c.cc, AdminService_ListUserSnapshots_FullMethodName, in, opts)
}

func (c *adminServiceClient) GetDashboard(ctx context.Context, in *GetDashboardRequest, opts ...grpc.CallOption) (*GetDashboardResponse, error) {
	return invoke[GetDashboardResponse](ctx, c.cc, AdminService_GetDashboard_FullMethodName, in, opts)
}

func (c *adminServiceClient) GetPeriodTime(ctx context.Context, in *GetPeriodTimeRequest, opts ...grpc.CallOption) (*GetPeriodTimeResponse, error) {
	return invoke[GetPeriodTimeResponse](ctx, c.cc, AdminService_GetPeriodTime_FullMethodName, in, opts)
}

func (c *adminServiceClient) ListActiveBlocks(ctx context.Context, in *ListActiveBlocksRequest, opts ...grpc.CallOption) (*ListActiveBlocksResponse, error) {
	return invoke[ListActiveBlocksResponse](ctx, c.cc, AdminService_ListActiveBlocks_FullMethodName, in, opts)
}

func (c *adminServiceClient) ListUserBlocks(ctx context.Context, in *ListUserBlocksRequest, opts ...grpc.CallOption) (*ListUserBlocksResponse, error) {
	return invoke[ListUserBlocksResponse](ctx, c.cc, AdminService_ListUserBlocks_FullMethodName, in, opts)
}

func (c *adminServiceClient) CreateBlock(ctx context.Context, in *CreateBlockRequest, opts ...grpc.CallOption) (*CreateBlockResponse, error) {
	return invoke[CreateBlockResponse](ctx, c.cc, AdminService_CreateBlock_FullMethodName, in, opts)
}

func (c *adminServiceClient) Unblock(ctx context.Context, in *UnblockRequest, opts ...grpc.CallOption) (*UnblockResponse, error) {
	return invoke[UnblockResponse](ctx, c.cc, AdminService_Unblock_FullMethodName, in, opts)
}

func (c *adminServiceClient) GetPolicy(ctx context.Context, in *GetPolicyRequest, opts ...grpc.CallOption) (*GetPolicyResponse, error) {
	return invoke[GetPolicyResponse](ctx, c.cc, AdminService_GetPolicy_FullMethodName, in, opts)
}

func (c *adminServiceClient) UpdatePolicy(ctx context.Context, in *UpdatePolicyRequest, opts ...grpc.CallOption) (*UpdatePolicyResponse, error) {
	return invoke[UpdatePolicyResponse](ctx, c.cc, AdminService_UpdatePolicy_FullMethodName, in, opts)
}

func (c *adminServiceClient) ListPolicyHistory(ctx context.Context, in *ListPolicyHistoryRequest, opts ...grpc.CallOption) (*ListPolicyHistoryResponse, error) {
	return invoke[ListPolicyHistoryResponse](ctx, c.cc, AdminService_ListPolicyHistory_FullMethodName, in, opts)
}

func (c *adminServiceClient) EvaluateUser(ctx context.Context, in *EvaluateUserRequest, opts ...grpc.CallOption) (*EvaluateUserResponse, error) {
	return invoke[EvaluateUserResponse](ctx, c.cc, AdminService_EvaluateUser_FullMethodName, in, opts)
}

func (c *adminServiceClient) ListAuditLogs(ctx context.Context, in *ListAuditLogsRequest, opts ...grpc.CallOption) (*ListAuditLogsResponse, error) {
	return invoke[ListAuditLogsResponse](ctx, c.cc, AdminService_ListAuditLogs_FullMethodName, in, opts)
}

func (c *adminServiceClient) WatchChanges(ctx context.Context, in *WatchChangesRequest, opts ...grpc.CallOption) (AdminService_WatchChangesClient, error) {
	stream, err := c.cc.NewStream(ctx, &AdminService_ServiceDesc.Streams[0], AdminService_WatchChanges_FullMethodName, withSubtype(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchChangesRequest, ChangeEvent]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
