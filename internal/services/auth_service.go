package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// Roles carried in tokens.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// Claims identify the caller. Subject is the student id for students and the
// instructor email for instructors.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// StudentID returns the subject of a student token, or "".
func (c *Claims) StudentID() string {
	if c == nil || c.Role != RoleStudent {
		return ""
	}
	return c.Subject
}

type AuthService interface {
	InstructorLogin(ctx context.Context, email, password string) (string, error)
	IssueStudentToken(studentID string) (string, error)
	ParseToken(token string) (*Claims, error)
}

type authService struct {
	hmacSecret      []byte
	ttl             time.Duration
	instructorEmail string
	instructorHash  []byte
	now             func() time.Time
}

func NewAuthService(secret []byte, ttl time.Duration, instructorEmail, instructorPasswordHash string) AuthService {
	return &authService{
		hmacSecret:      secret,
		ttl:             ttl,
		instructorEmail: strings.ToLower(strings.TrimSpace(instructorEmail)),
		instructorHash:  []byte(instructorPasswordHash),
		now:             time.Now,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) InstructorLogin(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(s.instructorHash) == 0 || email != s.instructorEmail {
		logger.L().Warn("instructor login rejected", zap.String("email", email))
		return "", appErr.New(appErr.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(s.instructorHash, []byte(password)); err != nil {
		logger.L().Warn("instructor login rejected", zap.String("email", email))
		return "", appErr.New(appErr.CodeUnauthorized, "invalid credentials")
	}
	logger.L().Info("instructor logged in", zap.String("email", email))
	return s.sign(RoleInstructor, email)
}

func (s *authService) IssueStudentToken(studentID string) (string, error) {
	return s.sign(RoleStudent, studentID)
}

func (s *authService) sign(role, subject string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "sign token failed")
	}
	return signed, nil
}

func (s *authService) ParseToken(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.hmacSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid token")
	}
	if claims.Role != RoleStudent && claims.Role != RoleInstructor {
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid token role")
	}
	return &claims, nil
}

// HashPassword produces the bcrypt hash expected in INSTRUCTOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", appErr.New(appErr.CodeInvalid, "password must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}
	return string(h), nil
}
