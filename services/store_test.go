package services

import (
	"context"
	"strings"

	"accessgate-backend/apperrors"
	"accessgate-backend/database"
	"accessgate-backend/models"
)

// fakeStore is an in-memory database.Store. grantQueries counts the
// role/direct lookup calls so tests can assert cache short-circuits.
type fakeStore struct {
	apps         map[string]*models.Application // by lowercase key
	appsWithKeys []models.Application
	userRoles    map[string][]string // userID|appID -> role ids
	roleCodes    map[string][]string // role id -> permission codes
	directCodes  map[string][]string // userID|appID -> permission codes
	knownCodes   map[string]bool     // appID|code

	grantQueries int
	failListing  bool
}

var _ database.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		apps:        make(map[string]*models.Application),
		userRoles:   make(map[string][]string),
		roleCodes:   make(map[string][]string),
		directCodes: make(map[string][]string),
		knownCodes:  make(map[string]bool),
	}
}

func (s *fakeStore) addApp(id, key string, active bool) *models.Application {
	app := &models.Application{Id: id, Key: strings.ToLower(key), IsActive: active}
	s.apps[app.Key] = app
	return app
}

func (s *fakeStore) ApplicationByKey(ctx context.Context, key string) (*models.Application, error) {
	app, ok := s.apps[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "application not found")
	}
	return app, nil
}

func (s *fakeStore) ActiveApplicationsWithKeys(ctx context.Context) ([]models.Application, error) {
	if s.failListing {
		return nil, apperrors.New(apperrors.KindInfrastructure, "store down")
	}
	return s.appsWithKeys, nil
}

func (s *fakeStore) RoleIDsForUser(ctx context.Context, userID, appID string) ([]string, error) {
	s.grantQueries++
	return s.userRoles[userID+"|"+appID], nil
}

func (s *fakeStore) PermissionCodesForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	s.grantQueries++
	var codes []string
	for _, id := range roleIDs {
		codes = append(codes, s.roleCodes[id]...)
	}
	return codes, nil
}

func (s *fakeStore) DirectPermissionCodes(ctx context.Context, userID, appID string) ([]string, error) {
	s.grantQueries++
	return s.directCodes[userID+"|"+appID], nil
}

func (s *fakeStore) PermissionByCode(ctx context.Context, appID, code string) (*models.Permission, error) {
	if !s.knownCodes[appID+"|"+strings.ToLower(code)] {
		return nil, apperrors.New(apperrors.KindNotFound, "permission not found")
	}
	return &models.Permission{ApplicationId: appID, Code: strings.ToLower(code)}, nil
}

func (s *fakeStore) RolesForUser(ctx context.Context, userID, appID string) ([]models.Role, error) {
	var roles []models.Role
	for _, id := range s.userRoles[userID+"|"+appID] {
		roles = append(roles, models.Role{Id: id, ApplicationId: appID, Name: "role-" + id})
	}
	return roles, nil
}

// UserByEmail exists for interface completeness; nothing in this
// package reads users by email.
func (s *fakeStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, apperrors.New(apperrors.KindNotFound, "user not found")
}
