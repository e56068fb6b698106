// Package grpcsrv runs rosterd's optional gRPC listener. It serves the
// standard grpc.health.v1.Health service so load balancers and orchestrators
// can probe the process without speaking the HTTP record API.
package grpcsrv
