package domain

// AgentRole enumerates operator roles carried in access tokens.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleLead  AgentRole = "LEAD"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Agent is the authenticated operator making changes.
type Agent struct {
	ID   string
	Name string
	Role AgentRole
}
