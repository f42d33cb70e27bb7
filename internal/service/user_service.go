package service

import (
	"fmt"

	"siops/internal/apperr"
	"siops/internal/model"
	"siops/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmailExists  = fmt.Errorf("%w: email already exists", apperr.ErrValidation)
	ErrRoleNotFound = fmt.Errorf("%w: role", apperr.ErrNotFound)
	ErrLastAdmin    = fmt.Errorf("%w: at least one active %s must remain", apperr.ErrValidation, model.RoleAdmin)
)

type UserService interface {
	CreateUser(req *CreateUserRequest, creatorID string) (*model.User, error)
	UpdateUser(userID uuid.UUID, req *UpdateUserRequest, updaterID string) (*model.User, error)
	DeleteUser(userID uuid.UUID) error
	UpdateUserPrivileges(userID uuid.UUID, privilegeCodes []string, updaterID string) (*model.User, error)
	GetAllUsers() ([]model.UserResponse, error)
	GetUserByID(id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FullName    string `json:"full_name" validate:"required"`
	PhoneNumber string `json:"phone_number"`
	RoleID      uint   `json:"role_id" validate:"required"`
}

// UpdateUserRequest replaces a user's profile. A nil Password keeps the
// current one; a nil IsActive keeps the current status.
type UpdateUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FullName    string  `json:"full_name" validate:"required"`
	PhoneNumber string  `json:"phone_number"`
	RoleID      uint    `json:"role_id" validate:"required"`
	IsActive    *bool   `json:"is_active"`
}

type userService struct {
	userRepo      repository.UserRepository
	privilegeRepo repository.PrivilegeRepository
	roleRepo      repository.RoleRepository
}

func NewUserService(userRepo repository.UserRepository, privilegeRepo repository.PrivilegeRepository, roleRepo repository.RoleRepository) UserService {
	return &userService{
		userRepo:      userRepo,
		privilegeRepo: privilegeRepo,
		roleRepo:      roleRepo,
	}
}

func (s *userService) CreateUser(req *CreateUserRequest, creatorID string) (*model.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if existing, _ := s.userRepo.FindByEmail(req.Email); existing != nil {
		return nil, ErrEmailExists
	}
	role, err := s.roleRepo.FindByID(req.RoleID)
	if err != nil {
		return nil, ErrRoleNotFound
	}

	user := &model.User{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		RoleID:      &role.ID,
		IsActive:    true,
		Privileges:  role.Privileges, // new users start with the role's grants
	}
	user.CreatedBy = creatorID
	user.UpdatedBy = creatorID
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, apperr.Persistence("create user", err)
	}
	return user, nil
}

func (s *userService) UpdateUser(userID uuid.UUID, req *UpdateUserRequest, updaterID string) (*model.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if req.Email != user.Email {
		if existing, _ := s.userRepo.FindByEmail(req.Email); existing != nil {
			return nil, ErrEmailExists
		}
	}
	role, err := s.roleRepo.FindByID(req.RoleID)
	if err != nil {
		return nil, ErrRoleNotFound
	}

	active := user.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}
	demoted := user.RoleCode() == model.RoleAdmin && (role.Code != model.RoleAdmin || !active)
	if demoted && user.IsActive {
		if err := s.keepAnAdmin(); err != nil {
			return nil, err
		}
	}

	user.Email = req.Email
	user.FullName = req.FullName
	user.PhoneNumber = req.PhoneNumber
	user.RoleID = &role.ID
	user.Role = role
	user.IsActive = active
	user.UpdatedBy = updaterID
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, apperr.Persistence("update user", err)
	}
	// A role change resets direct grants to the new role's set.
	if err := s.userRepo.UpdatePrivileges(userID, role.Privileges); err != nil {
		return nil, apperr.Persistence("update user privileges", err)
	}
	return s.userRepo.FindByID(userID)
}

func (s *userService) DeleteUser(userID uuid.UUID) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return ErrUserNotFound
	}
	if user.IsActive && user.RoleCode() == model.RoleAdmin {
		if err := s.keepAnAdmin(); err != nil {
			return err
		}
	}
	if err := s.userRepo.Delete(userID); err != nil {
		return apperr.Persistence("delete user", err)
	}
	return nil
}

// keepAnAdmin refuses to remove the only active admin, who alone can approve
// and receive orders.
func (s *userService) keepAnAdmin() error {
	n, err := s.userRepo.CountActiveByRole(model.RoleAdmin)
	if err != nil {
		return apperr.Persistence("count admins", err)
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *userService) UpdateUserPrivileges(userID uuid.UUID, privilegeCodes []string, updaterID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	privileges, err := s.privilegeRepo.FindByCodes(privilegeCodes)
	if err != nil {
		return nil, apperr.Persistence("find privileges", err)
	}
	if len(privileges) != len(privilegeCodes) {
		return nil, apperr.Validation("unknown privilege code in %v", privilegeCodes)
	}

	if err := s.userRepo.UpdatePrivileges(userID, privileges); err != nil {
		return nil, apperr.Persistence("update user privileges", err)
	}
	user.UpdatedBy = updaterID
	if err := s.userRepo.Update(user); err != nil {
		return nil, apperr.Persistence("update user", err)
	}
	return s.userRepo.FindByID(userID)
}

func (s *userService) GetAllUsers() ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll()
	if err != nil {
		return nil, apperr.Persistence("list users", err)
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	response := user.ToResponse()
	return &response, nil
}
