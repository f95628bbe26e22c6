package service

import (
	"context"
	"testing"
	"time"

	"isintu/internal/cache"
	"isintu/internal/models"
	"isintu/internal/repository"
	"isintu/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func newIdentity(t *testing.T) *IdentityService {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	s := NewIdentityService(repository.NewProfileRepository(db), testSecret)
	s.hashCost = bcrypt.MinCost
	return s
}

func useMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func TestSignUpAndSignIn(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()

	session, err := s.SignUp(ctx, SignUpInput{Email: " New@Isintu.Test ", Password: "SecurePass12!", FullName: "  Lindiwe  Zulu "})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "new@isintu.test", session.Profile.Email)
	assert.Equal(t, "Lindiwe Zulu", session.Profile.FullName)
	assert.Equal(t, models.RoleUser, session.Profile.Role)

	claims, err := s.ParseToken(ctx, session.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, session.Profile.ID, id)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)

	signedIn, err := s.SignIn(ctx, "NEW@isintu.test", "SecurePass12!")
	require.NoError(t, err)
	assert.Equal(t, session.Profile.ID, signedIn.Profile.ID)

	_, err = s.SignIn(ctx, "new@isintu.test", "WrongPass12!!")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	_, err = s.SignIn(ctx, "nobody@isintu.test", "SecurePass12!")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestSignUp_Rejections(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()

	_, err := s.SignUp(ctx, SignUpInput{Email: "a@isintu.test", Password: "SecurePass12!", FullName: "A"})
	require.NoError(t, err)

	_, err = s.SignUp(ctx, SignUpInput{Email: "A@isintu.test", Password: "SecurePass12!", FullName: "B"})
	assert.True(t, models.IsCode(err, models.CodeConflict))

	cases := []SignUpInput{
		{Email: "bad", Password: "SecurePass12!", FullName: "C"},
		{Email: "c@isintu.test", Password: "weak", FullName: "C"},
		{Email: "c@isintu.test", Password: "SecurePass12!", FullName: "   "},
	}
	for i, in := range cases {
		_, err := s.SignUp(ctx, in)
		assert.True(t, models.IsCode(err, models.CodeValidation), "case %d: %v", i, err)
	}
}

func TestParseToken_RejectsForeignTokens(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()

	sign := func(claims jwt.Claims, secret string) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	base := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	wrongAud := base()
	wrongAud.Audience = jwt.ClaimStrings{"someone-else"}
	wrongIss := base()
	wrongIss.Issuer = "other-api"
	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExp := base()
	noExp.ExpiresAt = nil
	badSub := base()
	badSub.Subject = "abc"

	tokens := map[string]string{
		"wrong audience": sign(&Claims{RegisteredClaims: wrongAud}, testSecret),
		"wrong issuer":   sign(&Claims{RegisteredClaims: wrongIss}, testSecret),
		"expired":        sign(&Claims{RegisteredClaims: expired}, testSecret),
		"no expiry":      sign(&Claims{RegisteredClaims: noExp}, testSecret),
		"bad subject":    sign(&Claims{RegisteredClaims: badSub}, testSecret),
		"wrong secret":   sign(&Claims{RegisteredClaims: base()}, "another-secret-another-secret-xx"),
		"garbage":        "not.a.token",
	}
	for name, tok := range tokens {
		_, err := s.ParseToken(ctx, tok)
		assert.True(t, models.IsCode(err, models.CodeUnauthorized), name)
	}

	_, err := s.ParseToken(ctx, sign(&Claims{RegisteredClaims: base()}, testSecret))
	assert.NoError(t, err)
}

func TestSignOut_RevokesToken(t *testing.T) {
	mr := useMiniRedis(t)
	s := newIdentity(t)
	ctx := context.Background()

	session, err := s.SignUp(ctx, SignUpInput{Email: "out@isintu.test", Password: "SecurePass12!", FullName: "Out"})
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx, session.Token))
	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(session.Token, claims)
	require.NoError(t, err)
	assert.True(t, mr.Exists(blacklistPrefix+claims.ID))
	assert.Greater(t, mr.TTL(blacklistPrefix+claims.ID), 6*24*time.Hour)

	_, err = s.ParseToken(ctx, session.Token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestSignOut_WithoutRedisIsNoop(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()
	session, err := s.SignUp(ctx, SignUpInput{Email: "x@isintu.test", Password: "SecurePass12!", FullName: "X"})
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx, session.Token))
	_, err = s.ParseToken(ctx, session.Token)
	assert.NoError(t, err)
}

func TestProfileMaintenance(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()
	session, err := s.SignUp(ctx, SignUpInput{Email: "m@isintu.test", Password: "SecurePass12!", FullName: "Old"})
	require.NoError(t, err)
	id := session.Profile.ID

	updated, err := s.UpdateFullName(ctx, id, " New  Name ")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)

	_, err = s.UpdateFullName(ctx, id, "")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	err = s.ChangePassword(ctx, id, "wrong", "AnotherPass34$")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	err = s.ChangePassword(ctx, id, "SecurePass12!", "weak")
	assert.True(t, models.IsCode(err, models.CodeValidation))
	require.NoError(t, s.ChangePassword(ctx, id, "SecurePass12!", "AnotherPass34$"))

	_, err = s.SignIn(ctx, "m@isintu.test", "AnotherPass34$")
	assert.NoError(t, err)

	me, err := s.CurrentUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New Name", me.FullName)

	_, err = s.CurrentUser(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestEnsureAdminAndAdminProfile(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()

	_, err := s.AdminProfile(ctx)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	admin, err := s.EnsureAdmin(ctx, "Root@Isintu.Test", "RootPass1234!", "Root")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	again, err := s.EnsureAdmin(ctx, "root@isintu.test", "ignored", "Ignored")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	session, err := s.SignUp(ctx, SignUpInput{Email: "promote@isintu.test", Password: "SecurePass12!", FullName: "P"})
	require.NoError(t, err)
	promoted, err := s.EnsureAdmin(ctx, "promote@isintu.test", "", "")
	require.NoError(t, err)
	assert.Equal(t, session.Profile.ID, promoted.ID)
	assert.True(t, promoted.IsAdmin())

	first, err := s.AdminProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, first.ID)
}

func TestPublicProfile_Cached(t *testing.T) {
	mr := useMiniRedis(t)
	s := newIdentity(t)
	ctx := context.Background()
	session, err := s.SignUp(ctx, SignUpInput{Email: "p@isintu.test", Password: "SecurePass12!", FullName: "Pub"})
	require.NoError(t, err)

	p, err := s.PublicProfile(ctx, session.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pub", p.FullName)

	raw, err := mr.Get(cache.ProfileKey(session.Profile.ID))
	require.NoError(t, err)
	assert.NotContains(t, raw, "password")
	assert.Contains(t, raw, "Pub")
}
