package service_test

import (
	"errors"
	"testing"

	"siops/internal/apperr"
	"siops/internal/model"
	"siops/internal/repository"
	"siops/internal/service"
	"siops/internal/testdb"

	"gorm.io/gorm"
)

func newUserService(t *testing.T) (service.UserService, service.AuthService, *gorm.DB, map[string]*model.Role) {
	t.Helper()
	db := testdb.Open(t)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	if err := privilegeRepo.SeedDefaults(); err != nil {
		t.Fatalf("seed privileges: %v", err)
	}
	if err := roleRepo.SeedDefaults(); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	roles := map[string]*model.Role{}
	for _, code := range []string{model.RoleAdmin, model.RoleStaff} {
		r, err := roleRepo.FindByCode(code)
		if err != nil {
			t.Fatalf("find role %s: %v", code, err)
		}
		roles[code] = r
	}
	return service.NewUserService(userRepo, privilegeRepo, roleRepo), service.NewAuthService(userRepo), db, roles
}

func TestCreateUserGetsRolePrivileges(t *testing.T) {
	users, auth, _, roles := newUserService(t)

	user, err := users.CreateUser(&service.CreateUserRequest{
		Email:    "kasir@siops.test",
		Password: "secret123",
		FullName: "Kasir Satu",
		RoleID:   roles[model.RoleStaff].ID,
	}, "system")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(user.Privileges) != len(model.StaffPrivileges) {
		t.Errorf("expected %d privileges, got %d", len(model.StaffPrivileges), len(user.Privileges))
	}

	if _, err := users.CreateUser(&service.CreateUserRequest{
		Email: "kasir@siops.test", Password: "secret123", FullName: "Dup", RoleID: roles[model.RoleStaff].ID,
	}, "system"); !errors.Is(err, service.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
	if _, err := users.CreateUser(&service.CreateUserRequest{
		Email: "x@siops.test", Password: "secret123", FullName: "X", RoleID: 999,
	}, "system"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected role not found, got %v", err)
	}

	resp, err := auth.Login("kasir@siops.test", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" || resp.User.Email != "kasir@siops.test" {
		t.Errorf("unexpected login response %+v", resp)
	}
	if _, err := auth.ValidateToken(resp.Token); err != nil {
		t.Errorf("validate token: %v", err)
	}

	// A second login replaces the first session.
	if _, err := auth.Login("kasir@siops.test", "secret123"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if _, err := auth.ValidateToken(resp.Token); !errors.Is(err, service.ErrSessionReplaced) {
		t.Errorf("expected replaced session, got %v", err)
	}
	if _, err := auth.Login("kasir@siops.test", "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized for wrong password, got %v", err)
	}
}

func TestLastAdminCannotBeRemoved(t *testing.T) {
	users, _, db, roles := newUserService(t)
	admin := testdb.User(t, db, model.RoleAdmin)

	if err := users.DeleteUser(admin.ID); !errors.Is(err, service.ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin on delete, got %v", err)
	}
	inactive := false
	_, err := users.UpdateUser(admin.ID, &service.UpdateUserRequest{
		Email: admin.Email, FullName: admin.FullName, RoleID: roles[model.RoleAdmin].ID, IsActive: &inactive,
	}, "system")
	if !errors.Is(err, service.ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin on deactivate, got %v", err)
	}
	_, err = users.UpdateUser(admin.ID, &service.UpdateUserRequest{
		Email: admin.Email, FullName: admin.FullName, RoleID: roles[model.RoleStaff].ID,
	}, "system")
	if !errors.Is(err, service.ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin on demotion, got %v", err)
	}

	second := testdb.User(t, db, model.RoleAdmin)
	updated, err := users.UpdateUser(admin.ID, &service.UpdateUserRequest{
		Email: admin.Email, FullName: "Now Staff", RoleID: roles[model.RoleStaff].ID,
	}, second.ID.String())
	if err != nil {
		t.Fatalf("demote with another admin present: %v", err)
	}
	if updated.RoleCode() != model.RoleStaff || updated.FullName != "Now Staff" {
		t.Errorf("unexpected user after update %+v", updated.ToResponse())
	}
	if err := users.DeleteUser(second.ID); !errors.Is(err, service.ErrLastAdmin) {
		t.Errorf("expected the remaining admin to be kept, got %v", err)
	}
}

func TestUpdateUserPrivilegesRejectsUnknownCodes(t *testing.T) {
	users, _, db, _ := newUserService(t)
	staff := testdb.User(t, db, model.RoleStaff)

	if _, err := users.UpdateUserPrivileges(staff.ID, []string{"sale:view", "launch:rockets"}, "system"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	updated, err := users.UpdateUserPrivileges(staff.ID, []string{"sale:view", "opname:view"}, "system")
	if err != nil {
		t.Fatalf("update privileges: %v", err)
	}
	if len(updated.Privileges) != 2 {
		t.Errorf("expected 2 direct privileges, got %d", len(updated.Privileges))
	}
}
