package service

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/audit"
	"projecthub/internal/model"
	"projecthub/pkg/jwtutil"
	"projecthub/pkg/password"
)

var (
	emailRe     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	subdomainRe = regexp.MustCompile(`^[a-z0-9-]+$`)
)

var errInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid credentials")

// AuthService orchestrates login and tenant registration.
type AuthService struct {
	db    *gorm.DB
	jwt   *jwtutil.JWT
	audit *audit.Recorder
	log   *zap.Logger
}

// NewAuthService wires the login/registration flow.
func NewAuthService(db *gorm.DB, jwt *jwtutil.JWT, rec *audit.Recorder, log *zap.Logger) *AuthService {
	return &AuthService{db: db, jwt: jwt, audit: rec, log: log}
}

// LoginInput carries login credentials plus the optional tenant
// selector. Supplying either selector pins the lookup to that tenant.
type LoginInput struct {
	Email           string
	Password        string
	TenantSubdomain string
	TenantID        *uint
	IPAddress       string
}

// SessionUser is the sanitized user projection returned to clients.
// It never includes the password hash.
type SessionUser struct {
	ID       uint       `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
	TenantID *uint      `json:"tenant_id"`
}

// SessionTenant is the tenant projection attached to tenant-scoped
// sessions.
type SessionTenant struct {
	ID               uint                   `json:"id"`
	Name             string                 `json:"name"`
	Subdomain        string                 `json:"subdomain"`
	SubscriptionPlan model.SubscriptionPlan `json:"subscription_plan"`
	MaxUsers         int                    `json:"max_users"`
	MaxProjects      int                    `json:"max_projects"`
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresIn int64          `json:"expires_in"`
	User      SessionUser    `json:"user"`
	Tenant    *SessionTenant `json:"tenant,omitempty"`
}

func sessionUser(u *model.User) SessionUser {
	return SessionUser{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, TenantID: u.TenantID}
}

func sessionTenant(t *model.Tenant) *SessionTenant {
	if t == nil {
		return nil
	}
	return &SessionTenant{
		ID:               t.ID,
		Name:             t.Name,
		Subdomain:        t.Subdomain,
		SubscriptionPlan: t.SubscriptionPlan,
		MaxUsers:         t.MaxUsers,
		MaxProjects:      t.MaxProjects,
	}
}

// Login authenticates a caller. Lookup precedence:
//
//  1. Tenant supplied: resolve the tenant, then look up the user in
//     exactly that tenant. No fallback once a tenant was named.
//  2. No tenant: look up a tenant-less user (the super-admin path).
//  3. Still nothing: if the email exists in some tenant, answer
//     TENANT_REQUIRED so the caller can disambiguate.
//  4. Otherwise invalid credentials.
//
// Inactive account and wrong password collapse into the same response
// to avoid account enumeration.
func (s *AuthService) Login(in LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !emailRe.MatchString(email) || in.Password == "" {
		return nil, apperr.New(apperr.InvalidInput, "email and password are required")
	}

	var tenant *model.Tenant
	if in.TenantSubdomain != "" || in.TenantID != nil {
		t, err := s.findLoginTenant(in)
		if err != nil {
			return nil, err
		}
		tenant = t
	}

	if tenant != nil {
		var user model.User
		err := s.db.Where("email = ? AND tenant_id = ?", email, tenant.ID).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A tenant was explicitly named; never fall back.
				return nil, errInvalidCredentials
			}
			return nil, apperr.Wrap("lookup user", err)
		}
		return s.finishLogin(&user, tenant, in.Password, in.IPAddress)
	}

	// Tenant-less lookup: only super admins have a nil tenant_id.
	var user model.User
	err := s.db.Where("email = ? AND tenant_id IS NULL", email).First(&user).Error
	if err == nil {
		return s.finishLogin(&user, nil, in.Password, in.IPAddress)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap("lookup user", err)
	}

	// The email may live in some tenant; tell the caller to pick one
	// instead of guessing. This is the single deliberate exception to
	// the anti-enumeration rule.
	var count int64
	if err := s.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Wrap("lookup user", err)
	}
	if count > 0 {
		return nil, apperr.WithCode(apperr.Unauthenticated, apperr.CodeTenantRequired,
			"this email is associated with a tenant; specify the tenant subdomain to log in")
	}

	return nil, errInvalidCredentials
}

func (s *AuthService) findLoginTenant(in LoginInput) (*model.Tenant, error) {
	var tenant model.Tenant
	var err error
	if in.TenantSubdomain != "" {
		err = s.db.Where("subdomain = ?", strings.ToLower(in.TenantSubdomain)).First(&tenant).Error
	} else {
		err = s.db.First(&tenant, *in.TenantID).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "tenant not found")
		}
		return nil, apperr.Wrap("lookup tenant", err)
	}
	if tenant.Status != model.TenantActive {
		return nil, apperr.WithCode(apperr.Forbidden, apperr.CodeTenantNotActive, "tenant is not active")
	}
	return &tenant, nil
}

func (s *AuthService) finishLogin(user *model.User, tenant *model.Tenant, plain, ip string) (*LoginResult, error) {
	// Inactive account and credential mismatch produce the same
	// answer on purpose.
	if !user.IsActive || !password.Verify(plain, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	token, err := s.jwt.Issue(user.ID, user.TenantID, user.Role)
	if err != nil {
		return nil, apperr.Wrap("issue token", err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   user.TenantID,
		UserID:     &user.ID,
		Action:     model.ActionLogin,
		EntityType: "user",
		EntityID:   user.ID,
		IPAddress:  ip,
	})

	s.log.Info("user logged in",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.jwt.Lifetime().Seconds()),
		User:      sessionUser(user),
		Tenant:    sessionTenant(tenant),
	}, nil
}

// RegisterInput creates a brand-new tenant with its first admin.
type RegisterInput struct {
	TenantName    string
	Subdomain     string
	Plan          model.SubscriptionPlan
	AdminEmail    string
	AdminPassword string
	AdminFullName string
	IPAddress     string
}

// RegisterResult reports the provisioned tenant and admin.
type RegisterResult struct {
	Tenant SessionTenant `json:"tenant"`
	Admin  SessionUser   `json:"admin"`
}

// Register provisions a tenant and its first tenant_admin atomically:
// subdomain uniqueness, tenant row with plan-derived quotas, admin
// user. All of it commits or none of it does; the audit entry follows
// the commit.
func (s *AuthService) Register(in RegisterInput) (*RegisterResult, error) {
	if err := validateRegister(&in); err != nil {
		return nil, err
	}

	plan := in.Plan
	if plan == "" {
		plan = model.PlanFree
	}
	defaults := model.PlanDefaults[plan]

	hash, err := password.Hash(in.AdminPassword)
	if err != nil {
		return nil, apperr.Wrap("hash password", err)
	}

	var tenant model.Tenant
	var admin model.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Tenant
		err := tx.Where("subdomain = ?", in.Subdomain).First(&existing).Error
		if err == nil {
			return apperr.New(apperr.Conflict, "subdomain already exists")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap("check subdomain", err)
		}

		tenant = model.Tenant{
			Name:             in.TenantName,
			Subdomain:        in.Subdomain,
			Status:           model.TenantActive,
			SubscriptionPlan: plan,
			MaxUsers:         defaults.MaxUsers,
			MaxProjects:      defaults.MaxProjects,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return apperr.Wrap("create tenant", err)
		}

		admin = model.User{
			Email:        in.AdminEmail,
			PasswordHash: hash,
			FullName:     in.AdminFullName,
			Role:         model.RoleTenantAdmin,
			TenantID:     &tenant.ID,
			IsActive:     true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return apperr.Wrap("create admin user", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	s.audit.Record(audit.Entry{
		TenantID:   &tenant.ID,
		UserID:     &admin.ID,
		Action:     model.ActionCreateTenant,
		EntityType: "tenant",
		EntityID:   tenant.ID,
		IPAddress:  in.IPAddress,
	})

	s.log.Info("tenant registered",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("subdomain", tenant.Subdomain),
		zap.String("plan", string(plan)))

	return &RegisterResult{
		Tenant: *sessionTenant(&tenant),
		Admin:  sessionUser(&admin),
	}, nil
}

func validateRegister(in *RegisterInput) error {
	in.TenantName = strings.TrimSpace(in.TenantName)
	in.Subdomain = strings.ToLower(strings.TrimSpace(in.Subdomain))
	in.AdminEmail = strings.ToLower(strings.TrimSpace(in.AdminEmail))
	in.AdminFullName = strings.TrimSpace(in.AdminFullName)

	switch {
	case in.TenantName == "":
		return apperr.New(apperr.InvalidInput, "tenant name is required")
	case !subdomainRe.MatchString(in.Subdomain):
		return apperr.New(apperr.InvalidInput, "subdomain may contain only lowercase letters, digits and hyphens")
	case !emailRe.MatchString(in.AdminEmail):
		return apperr.New(apperr.InvalidInput, "a valid admin email is required")
	case len(in.AdminPassword) < 8:
		return apperr.New(apperr.InvalidInput, "admin password must be at least 8 characters")
	case in.AdminFullName == "":
		return apperr.New(apperr.InvalidInput, "admin full name is required")
	case in.Plan != "" && !in.Plan.Valid():
		return apperr.New(apperr.InvalidInput, "unknown subscription plan")
	}
	return nil
}

// Logout records the logout; the token itself simply expires.
func (s *AuthService) Logout(user *model.User, ip string) {
	s.audit.Record(audit.Entry{
		TenantID:   user.TenantID,
		UserID:     &user.ID,
		Action:     model.ActionLogout,
		EntityType: "user",
		EntityID:   user.ID,
		IPAddress:  ip,
	})
}

// Me returns the current user's projection plus tenant info for
// tenant-scoped sessions.
func (s *AuthService) Me(user *model.User, tenant *model.Tenant) *LoginResult {
	return &LoginResult{
		User:   sessionUser(user),
		Tenant: sessionTenant(tenant),
	}
}
