// Package guard decides what to do with a navigation given the current
// credential state. It only returns a decision; redirects and cookie
// deletion are applied by the caller.
package guard

import (
	"strings"

	"github.com/tabletap/gateway/internal/models"
)

// Decision kinds
type Kind int

const (
	Allow Kind = iota
	RedirectLogin
	RedirectRefresh
	RedirectHome
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectRefresh:
		return "redirect-refresh"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind Kind

	// Next carries the originally requested path for RedirectRefresh, so
	// the refresh flow can come back after renewing the pair
	Next string

	// ClearTokens marks that the stored tokens must be deleted alongside
	// the login redirect
	ClearTokens bool
}

// Route areas. A path belongs to an area when it equals the route or
// sits under it.
var (
	authRoutes    = []string{"/login"}
	managerRoutes = []string{"/manage"}
	guestRoutes   = []string{"/guest"}
	ownerRoutes   = []string{"/manage/accounts"}
)

func inArea(routes []string, path string) bool {
	for _, route := range routes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func isAuthRoute(path string) bool      { return inArea(authRoutes, path) }
func isManagerRoute(path string) bool   { return inArea(managerRoutes, path) }
func isGuestRoute(path string) bool     { return inArea(guestRoutes, path) }
func isOwnerRoute(path string) bool     { return inArea(ownerRoutes, path) }
func isProtectedRoute(path string) bool { return isManagerRoute(path) || isGuestRoute(path) }

// Decide maps (path, credential state, decoded role) to exactly one
// decision. Total and deterministic: no side effects, no I/O.
func Decide(path string, hasAccess bool, hasRefresh bool, role string) Decision {
	if isProtectedRoute(path) {
		if !hasRefresh {
			return Decision{Kind: RedirectLogin, ClearTokens: true}
		}
		if !hasAccess {
			return Decision{Kind: RedirectRefresh, Next: path}
		}
	}

	if hasRefresh {
		if isAuthRoute(path) {
			return Decision{Kind: RedirectHome}
		}

		// A session whose refresh token carries no usable role is corrupt
		if !models.ValidRole(role) {
			return Decision{Kind: RedirectLogin, ClearTokens: true}
		}

		guestInManagerArea := role == models.RoleGuest && isManagerRoute(path)
		staffInGuestArea := role != models.RoleGuest && isGuestRoute(path)
		nonOwnerInOwnerArea := role != models.RoleOwner && isOwnerRoute(path)
		if guestInManagerArea || staffInGuestArea || nonOwnerInOwnerArea {
			return Decision{Kind: RedirectHome}
		}
	}

	return Decision{Kind: Allow}
}
