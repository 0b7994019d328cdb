package trips_service_api

import (
	"context"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/trips"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "busbooking.v1.TripsService"

// TripsServiceServer is the read-only trip catalogue exposed to internal clients.
// Messages are protobuf well-known types so no generated code is needed.
type TripsServiceServer interface {
	ListTrips(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	GetTrip(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
}

type Server struct {
	trips trips.TripUseCase
}

func NewServer(trips trips.TripUseCase) *Server {
	return &Server{trips: trips}
}

// Register adds the trips, health and reflection services to srv.
func Register(srv *grpc.Server, server TripsServiceServer) {
	srv.RegisterService(&ServiceDesc, server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	reflection.Register(srv)
}

func (s *Server) ListTrips(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	list, err := s.trips.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(list))}
	for _, t := range list {
		resp.Values = append(resp.Values, structpb.NewStructValue(toPBTrip(&t)))
	}
	return resp, nil
}

func (s *Server) GetTrip(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "trip id must be positive")
	}
	trip, err := s.trips.GetByID(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toPBTrip(trip), nil
}

func toPBTrip(t *domain.Trip) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":          structpb.NewNumberValue(float64(t.ID)),
		"route":       structpb.NewStringValue(t.Route),
		"departure":   structpb.NewStringValue(t.Departure),
		"price_cents": structpb.NewNumberValue(float64(t.PriceCents)),
		"seats_total": structpb.NewNumberValue(float64(t.SeatsTotal)),
		"seats_left":  structpb.NewNumberValue(float64(t.SeatsLeft)),
		"sold_out":    structpb.NewBoolValue(t.SoldOut()),
	}}
}

func toStatus(err error) error {
	switch {
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case domain.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func _TripsService_ListTrips_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TripsServiceServer).ListTrips(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListTrips"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TripsServiceServer).ListTrips(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _TripsService_GetTrip_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TripsServiceServer).GetTrip(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetTrip"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TripsServiceServer).GetTrip(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TripsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTrips", Handler: _TripsService_ListTrips_Handler},
		{MethodName: "GetTrip", Handler: _TripsService_GetTrip_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "busbooking/v1/trips.proto",
}

var _ TripsServiceServer = (*Server)(nil)
