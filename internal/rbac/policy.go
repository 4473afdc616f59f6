package rbac

// Permission names a privileged capability. Handlers never compare role strings
// directly; they ask Can.
type Permission string

const (
	PermCreditsAdjust      Permission = "credits.adjust"
	PermCreditsGrant       Permission = "credits.grant"
	PermWalletsView        Permission = "wallets.view"
	PermTopUpList          Permission = "topup.list"
	PermTopUpReview        Permission = "topup.review"
	PermTransactionsDelete Permission = "transactions.delete"
	PermSubscriptionAssign Permission = "subscription.assign"
	PermAuditView          Permission = "audit.view"
)

var policy = map[string]map[Permission]struct{}{
	RoleSupportAgent: set(PermWalletsView, PermTopUpList),
	RoleConsultant:   set(PermWalletsView),
	RoleSupervisor: set(
		PermCreditsAdjust,
		PermCreditsGrant,
		PermWalletsView,
		PermTopUpList,
		PermTopUpReview,
		PermSubscriptionAssign,
		PermAuditView,
	),
}

// Can reports whether role holds permission p. super_admin holds every permission.
func Can(role string, p Permission) bool {
	if IsSuperAdmin(role) {
		return true
	}
	perms, ok := policy[role]
	if !ok {
		return false
	}
	_, ok = perms[p]
	return ok
}

// Permissions lists what role may do, for diagnostics and the /me endpoint.
func Permissions(role string) []Permission {
	all := []Permission{
		PermCreditsAdjust,
		PermCreditsGrant,
		PermWalletsView,
		PermTopUpList,
		PermTopUpReview,
		PermTransactionsDelete,
		PermSubscriptionAssign,
		PermAuditView,
	}
	out := make([]Permission, 0, len(all))
	for _, p := range all {
		if Can(role, p) {
			out = append(out, p)
		}
	}
	return out
}

func set(ps ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(ps))
	for _, p := range ps {
		m[p] = struct{}{}
	}
	return m
}
