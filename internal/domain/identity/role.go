package identity

// Role is the fixed set of user roles
type Role string

const (
	RoleOwner      Role = "owner"
	RoleSupervisor Role = "supervisor"
	RoleAccountant Role = "accountant"
	RoleAssistant  Role = "assistant"
	RoleOperator   Role = "operator"
	RoleReadOnly   Role = "readonly"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capability is a permission granted by a role
type Capability string

const (
	CapWrite         Capability = "write"
	CapFinancial     Capability = "financial"
	CapPayroll       Capability = "payroll"
	CapEmployees     Capability = "employees"
	CapManageUsers   Capability = "manage_users"
	CapReportPayment Capability = "report_payment"
)

var roleCapabilities = map[Role][]Capability{
	RoleOwner:      {CapWrite, CapFinancial, CapPayroll, CapEmployees, CapManageUsers, CapReportPayment},
	RoleSupervisor: {CapWrite, CapEmployees},
	RoleAccountant: {CapWrite, CapFinancial, CapPayroll, CapReportPayment},
	RoleAssistant:  {CapWrite},
	RoleOperator:   {CapWrite},
	RoleReadOnly:   {},
}

// Capabilities returns the capabilities granted by role
func Capabilities(r Role) []Capability {
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// HasCapability checks a single capability
func HasCapability(r Role, c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}
