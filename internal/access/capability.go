package access

import "github.com/SpectrexWizard/Q-Reserve/internal/domain"

// Capability names a discrete thing a role is allowed to do. The table is
// static; per-object decisions stay with the Policy predicates.
type Capability string

const (
	CapCreateTicket           Capability = "create_ticket"
	CapViewOwnTickets         Capability = "view_own_tickets"
	CapCommentOnOwnTickets    Capability = "comment_on_own_tickets"
	CapVoteOnTickets          Capability = "vote_on_tickets"
	CapViewAllTickets         Capability = "view_all_tickets"
	CapCommentOnTickets       Capability = "comment_on_tickets"
	CapModifyTicketStatus     Capability = "modify_ticket_status"
	CapAssignTickets          Capability = "assign_tickets"
	CapCreateInternalComments Capability = "create_internal_comments"
	CapManageCategories       Capability = "manage_categories"
	CapManageUsers            Capability = "manage_users"
	CapViewAuditLogs          Capability = "view_audit_logs"
)

var endUserCapabilities = []Capability{
	CapCreateTicket,
	CapViewOwnTickets,
	CapCommentOnOwnTickets,
	CapVoteOnTickets,
}

var agentCapabilities = append(append([]Capability{}, endUserCapabilities...),
	CapViewAllTickets,
	CapCommentOnTickets,
	CapModifyTicketStatus,
	CapAssignTickets,
	CapCreateInternalComments,
)

var adminCapabilities = append(append([]Capability{}, agentCapabilities...),
	CapManageCategories,
	CapManageUsers,
	CapViewAuditLogs,
)

// Capabilities returns the full capability set for a role. Each tier is a
// superset of the one below it.
func Capabilities(role domain.Role) []Capability {
	switch role {
	case domain.RoleAdmin:
		return adminCapabilities
	case domain.RoleAgent:
		return agentCapabilities
	case domain.RoleEndUser:
		return endUserCapabilities
	default:
		return nil
	}
}

// HasCapability reports whether the role holds the capability.
func HasCapability(role domain.Role, capability Capability) bool {
	for _, c := range Capabilities(role) {
		if c == capability {
			return true
		}
	}
	return false
}
