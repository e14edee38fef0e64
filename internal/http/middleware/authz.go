// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file gates mutating routes on caller capabilities. Policy lives behind
// the Authorizer interface; RoleAuthorizer is the default, role-header based
// implementation.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Capability names a guarded action.
type Capability string

const (
	// CapAssignMissions covers assigning, editing, bulk-updating and deleting missions.
	CapAssignMissions Capability = "assign_missions"
	// CapValidateChecklists covers checklist validation and lease date changes.
	CapValidateChecklists Capability = "validate_checklists"
)

// Authorizer decides whether a role holds a capability.
type Authorizer interface {
	CanAssignMissions(role string) bool
	CanValidateChecklists(role string) bool
}

// RoleAuthorizer grants capabilities to fixed role sets.
type RoleAuthorizer struct {
	Assigners  []string
	Validators []string
}

// DefaultAuthorizer lets ops and admin assign; owners, ops and admin validate.
func DefaultAuthorizer() RoleAuthorizer {
	return RoleAuthorizer{
		Assigners:  []string{RoleOps, RoleAdmin},
		Validators: []string{RoleOwner, RoleOps, RoleAdmin},
	}
}

// CanAssignMissions implements Authorizer.
func (a RoleAuthorizer) CanAssignMissions(role string) bool { return contains(a.Assigners, role) }

// CanValidateChecklists implements Authorizer.
func (a RoleAuthorizer) CanValidateChecklists(role string) bool { return contains(a.Validators, role) }

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Require returns a middleware that aborts with 403 unless the caller's role
// holds capability. A nil Authorizer allows everything (authorization off).
func Require(az Authorizer, capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if az == nil {
			c.Next()
			return
		}
		role := Role(c)
		var allowed bool
		switch capability {
		case CapAssignMissions:
			allowed = az.CanAssignMissions(role)
		case CapValidateChecklists:
			allowed = az.CanValidateChecklists(role)
		}
		if !allowed {
			forbidden.WithLabelValues(string(capability)).Inc()
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "role " + strconv.Quote(role) + " cannot " + string(capability),
			})
			return
		}
		c.Next()
	}
}
