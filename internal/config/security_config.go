// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityViewer                        // Any valid token, read-only access
	SecurityOperator                      // Operator token required
)

// EndpointSecurityConfig maps gRPC methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	// InventoryService - Read
	"/careinventory.v1.InventoryService/GetDashboard":     SecurityViewer,
	"/careinventory.v1.InventoryService/ListEvents":       SecurityViewer,
	"/careinventory.v1.InventoryService/VerifyEventChain": SecurityViewer,

	// InventoryService - Write
	"/careinventory.v1.InventoryService/SweepOverdue": SecurityOperator,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityOperator
}
