package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/service"
)

const InventoryServiceName = "careinventory.v1.InventoryService"

// InventoryServer is the operator console API. Messages are well-known
// protobuf types so clients need no generated stubs.
type InventoryServer interface {
	GetDashboard(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyEventChain(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SweepOverdue(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDashboard", Handler: getDashboardHandler},
		{MethodName: "ListEvents", Handler: listEventsHandler},
		{MethodName: "VerifyEventChain", Handler: verifyEventChainHandler},
		{MethodName: "SweepOverdue", Handler: sweepOverdueHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "careinventory/v1/inventory.proto",
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

func getDashboardHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).GetDashboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InventoryServiceName + "/GetDashboard"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).GetDashboard(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listEventsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).ListEvents(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InventoryServiceName + "/ListEvents"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).ListEvents(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func verifyEventChainHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).VerifyEventChain(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InventoryServiceName + "/VerifyEventChain"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).VerifyEventChain(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func sweepOverdueHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).SweepOverdue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InventoryServiceName + "/SweepOverdue"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).SweepOverdue(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

type InventoryHandler struct {
	loanSvc      service.LoanService
	dashboardSvc service.DashboardService
	eventSvc     service.EventService
}

func NewInventoryHandler(loanSvc service.LoanService, dashboardSvc service.DashboardService, eventSvc service.EventService) *InventoryHandler {
	return &InventoryHandler{loanSvc: loanSvc, dashboardSvc: dashboardSvc, eventSvc: eventSvc}
}

func (h *InventoryHandler) GetDashboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats, err := h.dashboardSvc.GetStats(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return toStruct(stats)
}

func (h *InventoryHandler) ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	events, err := h.eventSvc.List(ctx, eventFilterFromStruct(req))
	if err != nil {
		return nil, MapError(err)
	}
	return toStruct(map[string]any{"events": events})
}

func (h *InventoryHandler) VerifyEventChain(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report, err := h.eventSvc.VerifyChain(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return toStruct(report)
}

func (h *InventoryHandler) SweepOverdue(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	n, err := h.loanSvc.SweepOverdue(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	staff, _ := GetStaffFromContext(ctx)
	logger.Info("Overdue sweep requested", "staff", staff, "marked", n)
	return toStruct(map[string]any{"marked": n})
}

var _ InventoryServer = (*InventoryHandler)(nil)
