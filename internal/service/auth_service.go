package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	Role              model.Role `json:"role"`
	UserID            string     `json:"user_id"`
	RollNumber        string     `json:"roll_number,omitempty"`        // Student only
	Department        string     `json:"department,omitempty"`         // Student only
	Semester          int        `json:"semester,omitempty"`           // Student only
	DeviceFingerprint string     `json:"device_fingerprint,omitempty"` // Student only
	Email             string     `json:"email,omitempty"`              // Admin only
}

// AuthResult is returned by every successful register or login.
type AuthResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        any       `json:"user"`
}

// AuthService handles accounts, JWT issuance and the single-login session.
type AuthService struct {
	cfg          *config.Config
	rdb          *redis.Client
	students     repository.StudentRepo
	admins       repository.AdminRepo
	securityLogs repository.SecurityLogRepo
	log          zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, store *repository.Store, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:          cfg,
		rdb:          rdb,
		students:     store.Students,
		admins:       store.Admins,
		securityLogs: store.SecurityLogs,
		log:          log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ─── Students ────────────────────────────────────────────────────────────

// RegisterStudent creates the account and binds it to the registering device.
func (s *AuthService) RegisterStudent(ctx context.Context, req model.StudentRegisterRequest) (*AuthResult, error) {
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student := &model.Student{
		FullName:          strings.TrimSpace(req.FullName),
		RollNumber:        strings.TrimSpace(req.RollNumber),
		Department:        req.Department,
		Semester:          req.Semester,
		PasswordHash:      hash,
		DeviceFingerprint: req.DeviceInfo.Fingerprint(),
		DeviceInfo:        req.DeviceInfo,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.log.Info().Str("student_id", student.ID.String()).Str("roll_number", student.RollNumber).Msg("Student registered")
	return s.issueStudentToken(ctx, student)
}

// LoginStudent verifies credentials and the device binding. A login from
// another device is recorded in the security log and rejected; the bound
// fingerprint is never changed.
func (s *AuthService) LoginStudent(ctx context.Context, req model.StudentLoginRequest) (*AuthResult, error) {
	student, err := s.students.GetByRollNumber(ctx, strings.TrimSpace(req.RollNumber))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	if err := s.CheckPassword(student.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	actual := req.DeviceInfo.Fingerprint()
	if actual != student.DeviceFingerprint {
		s.recordDeviceMismatch(ctx, student.ID, student.RollNumber, model.SecurityEventUnauthorizedLogin,
			student.DeviceFingerprint, actual, req.DeviceInfo)
		return nil, ErrDeviceMismatch
	}

	return s.issueStudentToken(ctx, student)
}

// VerifyDevice compares the fingerprint a client sends with a request
// against the one sealed into its token. An empty fingerprint is not checked.
func (s *AuthService) VerifyDevice(ctx context.Context, p model.StudentPrincipal, fingerprint string) error {
	if fingerprint == "" || fingerprint == p.DeviceFingerprint {
		return nil
	}
	s.recordDeviceMismatch(ctx, p.ID, p.RollNumber, model.SecurityEventUnauthorizedAction,
		p.DeviceFingerprint, fingerprint, model.DeviceInfo{})
	return ErrDeviceMismatch
}

func (s *AuthService) recordDeviceMismatch(ctx context.Context, studentID uuid.UUID, rollNumber, event, expected, actual string, info model.DeviceInfo) {
	entry := &model.SecurityLog{
		StudentID:           studentID,
		RollNumber:          rollNumber,
		EventType:           event,
		ExpectedFingerprint: expected,
		ActualFingerprint:   actual,
		DeviceInfo:          info,
	}
	if err := s.securityLogs.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("student_id", studentID.String()).Msg("Failed to write security log")
	}
	s.log.Warn().
		Str("student_id", studentID.String()).
		Str("event", event).
		Str("expected", expected).
		Str("actual", actual).
		Msg("Device fingerprint mismatch")
}

// issueStudentToken signs a token and stores its JTI as the only valid one,
// replacing any earlier login.
func (s *AuthService) issueStudentToken(ctx context.Context, student *model.Student) (*AuthResult, error) {
	jti := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(s.cfg.JWTExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   student.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:              model.RoleStudent,
		UserID:            student.ID.String(),
		RollNumber:        student.RollNumber,
		Department:        student.Department,
		Semester:          student.Semester,
		DeviceFingerprint: student.DeviceFingerprint,
	}

	signed, err := s.sign(claims)
	if err != nil {
		return nil, err
	}

	key := config.CacheKey.StudentTokenKey(student.ID.String())
	if err := s.rdb.Set(ctx, key, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &AuthResult{AccessToken: signed, TokenType: "bearer", ExpiresAt: expiresAt, User: student}, nil
}

// ValidateStudentSession checks that the token's JTI is the active one in Redis.
func (s *AuthService) ValidateStudentSession(ctx context.Context, p model.StudentPrincipal) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.StudentTokenKey(p.ID.String())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != p.TokenID {
		return ErrSessionInvalidated
	}
	return nil
}

// Logout drops the student's active token.
func (s *AuthService) Logout(ctx context.Context, studentID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentTokenKey(studentID.String())).Err()
}

// ─── Admins ──────────────────────────────────────────────────────────────

// RegisterAdmin creates an administrator when self-registration is enabled.
func (s *AuthService) RegisterAdmin(ctx context.Context, req model.AdminRegisterRequest) (*AuthResult, error) {
	if !s.cfg.AllowAdminRegistration {
		return nil, ErrRegistrationClosed
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.log.Info().Str("admin_id", admin.ID.String()).Str("email", admin.Email).Msg("Admin registered")
	return s.issueAdminToken(admin)
}

// LoginAdmin verifies admin credentials.
func (s *AuthService) LoginAdmin(ctx context.Context, req model.AdminLoginRequest) (*AuthResult, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if err := s.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	return s.issueAdminToken(admin)
}

func (s *AuthService) issueAdminToken(admin *model.Admin) (*AuthResult, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.JWTExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   admin.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:   model.RoleAdmin,
		UserID: admin.ID.String(),
		Email:  admin.Email,
	}

	signed, err := s.sign(claims)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: signed, TokenType: "bearer", ExpiresAt: expiresAt, User: admin}, nil
}

// ─── Tokens ──────────────────────────────────────────────────────────────

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a bearer token and resolves it to a Principal.
func (s *AuthService) ValidateToken(tokenStr string) (model.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrUnauthenticated
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrUnauthenticated)
	}

	switch claims.Role {
	case model.RoleStudent:
		return model.StudentPrincipal{
			ID:                id,
			RollNumber:        claims.RollNumber,
			Department:        claims.Department,
			Semester:          claims.Semester,
			DeviceFingerprint: claims.DeviceFingerprint,
			TokenID:           claims.ID,
		}, nil
	case model.RoleAdmin:
		return model.AdminPrincipal{ID: id, Email: claims.Email}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, claims.Role)
	}
}

// Me returns the account behind a principal.
func (s *AuthService) Me(ctx context.Context, p model.Principal) (any, error) {
	switch v := p.(type) {
	case model.StudentPrincipal:
		return s.students.GetByID(ctx, v.ID)
	case model.AdminPrincipal:
		return s.admins.GetByID(ctx, v.ID)
	default:
		return nil, ErrUnauthenticated
	}
}
