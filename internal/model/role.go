package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // ADMIN, STAFF
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

var DefaultRoles = []Role{
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Approves and receives orders, manages users and stock opname",
	},
	{
		Code:        RoleStaff,
		Name:        "Staff",
		Description: "Records sales and places orders",
	},
}

// StaffPrivileges is the subset of DefaultPrivileges the STAFF role gets
var StaffPrivileges = []string{
	"product:view", "order:view", "order:create", "order:update",
	"sale:view", "sale:create", "sale:import", "dashboard:view",
}
