package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/designwheel/engine/pkg/errors"
)

func newTestAuth(t *testing.T) *authService {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	return NewAuthService([]byte("test-secret"), time.Hour, "Teacher@Uni.edu", hash).(*authService)
}

func TestInstructorLogin(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.InstructorLogin(context.Background(), " teacher@uni.edu ", "s3cret")
	require.NoError(t, err)
	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleInstructor, claims.Role)
	assert.Equal(t, "teacher@uni.edu", claims.Subject)
	assert.Empty(t, claims.StudentID())

	_, err = auth.InstructorLogin(context.Background(), "teacher@uni.edu", "wrong")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
	_, err = auth.InstructorLogin(context.Background(), "other@uni.edu", "s3cret")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestStudentToken(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.IssueStudentToken(adaID)
	require.NoError(t, err)
	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, adaID, claims.StudentID())
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	auth := newTestAuth(t)
	token, err := auth.IssueStudentToken(adaID)
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.ParseToken(token)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	other := NewAuthService([]byte("other-secret"), time.Hour, "", "")
	foreign, err := other.IssueStudentToken(adaID)
	require.NoError(t, err)
	auth.now = time.Now
	_, err = auth.ParseToken(foreign)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestInstructorLoginDisabledWithoutHash(t *testing.T) {
	auth := NewAuthService([]byte("k"), time.Hour, "teacher@uni.edu", "")
	_, err := auth.InstructorLogin(context.Background(), "teacher@uni.edu", "")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}
