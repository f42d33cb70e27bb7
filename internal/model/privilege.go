package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "product:create"
	Name string `gorm:"type:varchar(100)" json:"name"`                     // e.g., "Create Product"
}

var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	// Catalog
	{Code: "product:view", Name: "View Product"},
	{Code: "product:create", Name: "Create Product"},
	{Code: "product:update", Name: "Update Product"},
	{Code: "product:delete", Name: "Delete Product"},
	// Orders
	{Code: "order:view", Name: "View Order"},
	{Code: "order:create", Name: "Create Order"},
	{Code: "order:update", Name: "Update Order"},
	// Sales
	{Code: "sale:view", Name: "View Sale"},
	{Code: "sale:create", Name: "Create Sale"},
	{Code: "sale:import", Name: "Import Sales CSV"},
	// Stock opname
	{Code: "opname:view", Name: "View Stock Opname"},
	{Code: "opname:create", Name: "Create Stock Opname"},
	// Dashboard
	{Code: "dashboard:view", Name: "View Dashboard"},
}
