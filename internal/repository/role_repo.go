package repository

import (
	"errors"

	"siops/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindAll() ([]model.Role, error)
	FindByID(id uint) (*model.Role, error)
	FindByCode(code string) (*model.Role, error)
	Create(role *model.Role) error
	SeedDefaults() error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll() ([]model.Role, error) {
	var roles []model.Role
	err := r.db.Preload("Privileges").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByID(id uint) (*model.Role, error) {
	var role model.Role
	err := r.db.Preload("Privileges").First(&role, id).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) FindByCode(code string) (*model.Role, error) {
	var role model.Role
	err := r.db.Preload("Privileges").Where("code = ?", code).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) Create(role *model.Role) error {
	return r.db.Create(role).Error
}

// SeedDefaults creates ADMIN and STAFF if missing and grants ADMIN every
// privilege and STAFF its default subset. Run after privileges are seeded.
func (r *roleRepo) SeedDefaults() error {
	var all []model.Privilege
	if err := r.db.Find(&all).Error; err != nil {
		return err
	}
	staff := make(map[string]bool, len(model.StaffPrivileges))
	for _, code := range model.StaffPrivileges {
		staff[code] = true
	}

	for _, defaultRole := range model.DefaultRoles {
		role := defaultRole
		err := r.db.Where("code = ?", role.Code).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Role doesn't exist, create it
			if err := r.db.Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var grants []model.Privilege
		for _, p := range all {
			if role.Code == model.RoleAdmin || staff[p.Code] {
				grants = append(grants, p)
			}
		}
		if err := r.db.Model(&role).Association("Privileges").Replace(grants); err != nil {
			return err
		}
	}
	return nil
}
