package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"tasktracker/internal/core/auth"
	"tasktracker/internal/domain"
	"tasktracker/internal/repo"
	"tasktracker/internal/service"
	"tasktracker/internal/testutil"
)

type welcomeRecorder struct {
	got   []string
	panic bool
}

func (w *welcomeRecorder) SendWelcome(_ context.Context, u domain.User) {
	if w.panic {
		panic("mail exploded")
	}
	w.got = append(w.got, u.Username)
}

func newUserService(t *testing.T, db *gorm.DB, w service.WelcomeSender) (*service.UserService, *auth.JWTer) {
	t.Helper()
	j := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "tasktracker", TTL: time.Hour}
	return service.NewUserService(repo.NewUserRepo(db), j, w, zaptest.NewLogger(t)), j
}

func TestRegisterAndLogin(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	w := &welcomeRecorder{}
	svc, j := newUserService(t, db, w)

	u, err := svc.Register(ctx, "alice", "pw1234", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "pw1234", u.PasswordHash)
	assert.Equal(t, []string{"alice"}, w.got)

	_, err = svc.Register(ctx, "alice", "other", "")
	assert.ErrorIs(t, err, service.ErrConflict)
	_, err = svc.Register(ctx, "alice2", "other", "alice@example.com")
	assert.ErrorIs(t, err, service.ErrConflict)
	_, err = svc.Register(ctx, "", "pw", "")
	assert.ErrorIs(t, err, service.ErrValidation)

	tok, who, err := svc.Login(ctx, "alice", "pw1234")
	require.NoError(t, err)
	assert.Equal(t, u.ID, who.ID)
	claims, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, "USER", claims.Role)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	_, _, err = svc.Login(ctx, "nobody", "pw1234")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestRegisterSurvivesWelcomeFailure(t *testing.T) {
	db := testutil.NewDB(t)
	svc, _ := newUserService(t, db, &welcomeRecorder{panic: true})

	u, err := svc.Register(context.Background(), "bob", "pw1234", "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
}

func TestProfileAndPassword(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc, _ := newUserService(t, db, nil)

	_, err := svc.Register(ctx, "alice", "pw1234", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "pw1234", "bob@example.com")
	require.NoError(t, err)

	u, err := svc.UpdateProfile(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	addr, ok := u.ContactAddress()
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", addr)

	// 保留自己的邮箱不算冲突
	_, err = svc.UpdateProfile(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, "alice", "bob@example.com")
	assert.ErrorIs(t, err, service.ErrConflict)

	u, err = svc.UpdateProfile(ctx, "alice", "")
	require.NoError(t, err)
	assert.Nil(t, u.Email)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "alice", "wrong", "new-pw"), service.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, "alice", "pw1234", "new-pw"))
	_, _, err = svc.Login(ctx, "alice", "new-pw")
	require.NoError(t, err)

	users, total, err := svc.List(ctx, -1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)
}

// staleUsers 查重永远返回“未占用”，模拟并发注册时查重落后
type staleUsers struct{ domain.UserRepository }

func (staleUsers) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (staleUsers) ExistsByEmail(context.Context, string) (bool, error)    { return false, nil }

func TestRegisterRaceLosesToUniqueIndex(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	j := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "tasktracker", TTL: time.Hour}
	svc := service.NewUserService(staleUsers{repo.NewUserRepo(db)}, j, nil, zaptest.NewLogger(t))

	_, err := svc.Register(ctx, "alice", "pw1234", "alice@example.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "pw1234", "")
	assert.ErrorIs(t, err, service.ErrConflict)
	_, err = svc.Register(ctx, "alice2", "pw1234", "alice@example.com")
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = svc.Register(ctx, "bob", "pw1234", "bob@example.com")
	require.NoError(t, err)
	_, err = svc.UpdateProfile(ctx, "bob", "alice@example.com")
	assert.ErrorIs(t, err, service.ErrConflict)
}
