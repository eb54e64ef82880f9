package access

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/pkg/logger"
)

var ErrInvalidRole = errors.New("invalid requester role")

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

type SourceType string

const (
	SourceTicket SourceType = "ticket"
	SourceKB     SourceType = "kb"
	SourceCI     SourceType = "ci"
)

// Capability is the resolved permission set for one requester role. It is
// derived on every call and never persisted.
type Capability struct {
	MaxResults       int
	AllowedSources   map[SourceType]bool
	AnalyticsEnabled bool
}

func (c Capability) Allows(source SourceType) bool {
	return c.AllowedSources[source]
}

// Resolve maps a requester role to its capability set. Unknown roles are an
// error, never a silent default.
func Resolve(role Role) (Capability, error) {
	switch role {
	case RoleUser:
		return Capability{
			MaxResults:       5,
			AllowedSources:   map[SourceType]bool{SourceKB: true},
			AnalyticsEnabled: false,
		}, nil
	case RoleAgent:
		return Capability{
			MaxResults:       10,
			AllowedSources:   map[SourceType]bool{SourceTicket: true, SourceKB: true, SourceCI: true},
			AnalyticsEnabled: false,
		}, nil
	case RoleAdmin:
		return Capability{
			MaxResults:       15,
			AllowedSources:   map[SourceType]bool{SourceTicket: true, SourceKB: true, SourceCI: true},
			AnalyticsEnabled: true,
		}, nil
	default:
		return Capability{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}

// ResolveOrDefault resolves the role, falling back to the least privileged
// tier when the role is unrecognized. The anomaly is logged so privilege
// escalation through a malformed role can never go unnoticed.
func ResolveOrDefault(role Role) Capability {
	cap, err := Resolve(role)
	if err != nil {
		logger.Warn("Unrecognized requester role, failing closed to user tier",
			zap.String("role", string(role)),
		)
		cap, _ = Resolve(RoleUser)
	}
	return cap
}
