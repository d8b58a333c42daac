package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner() *Signer {
	return NewSigner("test-key", "academy-test", time.Minute, time.Hour)
}

func TestIssueAndParse(t *testing.T) {
	s := testSigner()
	pair, err := s.Issue("acct-1", RoleCoach)
	require.NoError(t, err)

	claims, err := s.Parse(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.Subject)
	assert.Equal(t, RoleCoach, claims.Role)

	_, err = s.Parse(pair.RefreshToken, KindAccess)
	assert.Error(t, err, "refresh token must not pass as access token")
	_, err = s.Parse(pair.RefreshToken, KindRefresh)
	assert.NoError(t, err)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	s := testSigner()
	pair, err := s.Issue("acct-1", RoleAdmin)
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Minute)
	s.Now = func() time.Time { return later }
	_, err = s.Parse(pair.AccessToken, KindAccess)
	assert.Error(t, err)

	other := NewSigner("other-key", "academy-test", time.Minute, time.Hour)
	_, err = other.Parse(pair.RefreshToken, KindRefresh)
	assert.Error(t, err)

	wrongIssuer := NewSigner("test-key", "someone-else", time.Minute, time.Hour)
	_, err = wrongIssuer.Parse(pair.RefreshToken, KindRefresh)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testSigner()
	r := gin.New()
	r.GET("/coach", Bearer(s), RequireRole(RoleCoach, RoleAdmin), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Subject)
	})

	coach, err := s.Issue("c1", RoleCoach)
	require.NoError(t, err)
	student, err := s.Issue("s1", RoleStudent)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no token", "/coach", "", http.StatusUnauthorized},
		{"garbage", "/coach", "Bearer nope", http.StatusUnauthorized},
		{"coach header", "/coach", "Bearer " + coach.AccessToken, http.StatusOK},
		{"coach query", "/coach?access_token=" + coach.AccessToken, "", http.StatusOK},
		{"student", "/coach", "bearer " + student.AccessToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
