// Package grpcguard provides gRPC server interceptors that authenticate
// bearer tokens from the "authorization" metadata and enforce per-method
// permission requirements.
//
// Authentication failures are returned as codes.Unauthenticated and
// permission denials as codes.PermissionDenied.
//
//	interceptor, err := grpcguard.New(
//	    grpcguard.WithValidator(v),
//	    grpcguard.WithRequirement("/library.Books/List", permission.MatchAll, permission.BookRead),
//	    grpcguard.WithRequirement("/library.Loans/Return", permission.MatchAny,
//	        permission.LoanRequest, permission.LoanApprove),
//	    grpcguard.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// Handlers read the caller with IdentityFromContext.
package grpcguard
