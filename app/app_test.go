package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/crudgate/adapters/auth"
	"github.com/artpar/crudgate/adapters/clock"
	"github.com/artpar/crudgate/adapters/hasher"
	"github.com/artpar/crudgate/adapters/memory"
	"github.com/artpar/crudgate/app"
	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/domain/product"
	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newUsers() (*app.UserService, *memory.UserStore) {
	store := memory.NewUserStore()
	svc := app.NewUserService(app.UserDeps{
		Store:  store,
		Hasher: hasher.Fake{},
		Clock:  clock.NewManual(epoch),
		Logger: zerolog.Nop(),
	})
	return svc, store
}

func asCaller(id int64, role user.Role) context.Context {
	ctx := crud.WithAttribute(context.Background(), app.AttrUserID, id)
	return crud.WithAttribute(ctx, app.AttrRole, role)
}

func TestUserValidator_Create(t *testing.T) {
	req, err := crud.NewRequest(context.Background(), "POST", "/api/users",
		[]byte(`{"email":"bad","name":"A"}`), nil, nil)
	require.NoError(t, err)

	_, err = app.UserValidator{}.ValidateCreate(req)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "email")
	assert.Contains(t, e.Fields, "name")
	assert.Contains(t, e.Fields, "password")
}

func TestUserValidator_SelfUpdate(t *testing.T) {
	req, err := crud.NewRequest(context.Background(), "PATCH", "/api/users/me",
		[]byte(`{"role":"admin"}`), nil, nil)
	require.NoError(t, err)

	_, err = app.UserValidator{}.ValidateUpdate(req)
	require.NoError(t, err)

	_, err = app.UserValidator{Self: true}.ValidateUpdate(req)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "role")
}

func TestUserService_Create(t *testing.T) {
	svc, store := newUsers()
	ctx := context.Background()

	u, err := svc.Execute(ctx, user.Command{
		Email:    ptr(" Ada@Example.com "),
		Name:     ptr("Ada"),
		Password: ptr("Secret123"),
	})
	require.NoError(t, err)
	assert.Positive(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, user.RoleUser, u.Role)
	assert.Equal(t, []byte("fake$Secret123"), u.PasswordHash)

	stored, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, epoch, stored.CreatedAt)

	_, err = svc.Execute(ctx, user.Command{Email: ptr("ada@example.com"), Name: ptr("Other"), Password: ptr("Secret123")})
	assert.True(t, errs.Is(err, errs.KindBusinessLogic), "duplicate email: %v", err)
}

func TestUserService_UpdateAndDelete(t *testing.T) {
	svc, _ := newUsers()
	ctx := context.Background()

	u, err := svc.Execute(ctx, user.Command{Email: ptr("a@b.co"), Name: ptr("Ann"), Password: ptr("Secret123")})
	require.NoError(t, err)

	updated, err := svc.ExecuteWithID(ctx, user.Command{Name: ptr("Anne"), Password: ptr("Newpass99")}, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anne", updated.Name)
	assert.Equal(t, []byte("fake$Newpass99"), updated.PasswordHash)

	_, err = svc.ExecuteWithID(ctx, user.Command{Name: ptr("X")}, 999)
	assert.True(t, errs.Is(err, errs.KindNotFound))

	ok, err := svc.DeleteByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.DeleteByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.FindByID(ctx, u.ID)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestUserService_EmailConflictOnUpdate(t *testing.T) {
	svc, _ := newUsers()
	ctx := context.Background()

	_, err := svc.Execute(ctx, user.Command{Email: ptr("a@b.co"), Name: ptr("Ann"), Password: ptr("Secret123")})
	require.NoError(t, err)
	b, err := svc.Execute(ctx, user.Command{Email: ptr("b@b.co"), Name: ptr("Bob"), Password: ptr("Secret123")})
	require.NoError(t, err)

	_, err = svc.ExecuteWithID(ctx, user.Command{Email: ptr("a@b.co")}, b.ID)
	assert.True(t, errs.Is(err, errs.KindBusinessLogic), "got %v", err)
}

func TestProductService_Ownership(t *testing.T) {
	svc := app.NewProductService(app.ProductDeps{
		Store:  memory.NewProductStore(),
		Clock:  clock.NewManual(epoch),
		Logger: zerolog.Nop(),
	})
	cmd := product.Command{Name: ptr("Lamp"), PriceCents: ptr(int64(1999))}

	_, err := svc.Execute(context.Background(), cmd)
	assert.True(t, errs.Is(err, errs.KindUnauthorized))

	p, err := svc.Execute(asCaller(1, user.RoleUser), cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.OwnerID)

	_, err = svc.ExecuteWithID(asCaller(2, user.RoleUser), product.Command{Stock: ptr(int64(3))}, p.ID)
	assert.True(t, errs.Is(err, errs.KindForbidden))

	updated, err := svc.ExecuteWithID(asCaller(2, user.RoleAdmin), product.Command{Stock: ptr(int64(3))}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Stock)

	_, err = svc.DeleteByID(asCaller(2, user.RoleUser), p.ID)
	assert.True(t, errs.Is(err, errs.KindForbidden))

	ok, err := svc.DeleteByID(asCaller(1, user.RoleUser), p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.DeleteByID(asCaller(1, user.RoleUser), p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductService_DeletedOwner(t *testing.T) {
	users, store := newUsers()
	ctx := context.Background()
	svc := app.NewProductService(app.ProductDeps{
		Store:  memory.NewProductStore(),
		Users:  store,
		Clock:  clock.NewManual(epoch),
		Logger: zerolog.Nop(),
	})
	cmd := product.Command{Name: ptr("Lamp"), PriceCents: ptr(int64(1999))}

	u, err := users.Execute(ctx, user.Command{Email: ptr("gone@example.com"), Name: ptr("Gus"), Password: ptr("Secret123")})
	require.NoError(t, err)
	_, err = svc.Execute(asCaller(u.ID, user.RoleUser), cmd)
	require.NoError(t, err)

	_, err = users.DeleteByID(ctx, u.ID)
	require.NoError(t, err)
	_, err = svc.Execute(asCaller(u.ID, user.RoleUser), cmd)
	assert.True(t, errs.Is(err, errs.KindUnauthorized), "got %v", err)
}

func TestProductValidator(t *testing.T) {
	req, err := crud.NewRequest(context.Background(), "POST", "/api/products",
		[]byte(`{"name":"","price_cents":-1}`), nil, nil)
	require.NoError(t, err)

	_, err = app.ProductValidator{}.ValidateCreate(req)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindValidation, e.Kind)
	assert.NotEmpty(t, e.Fields)
}

func newAuth(t *testing.T) (*app.AuthService, *app.UserService, *auth.TokenService) {
	t.Helper()
	users, store := newUsers()
	tokens := auth.NewTokenService(auth.Config{Secret: "test-secret", Clock: clock.NewManual(epoch)})
	return app.NewAuthService(app.AuthDeps{
		Users:  store,
		Hasher: hasher.Fake{},
		Tokens: tokens,
		Logger: zerolog.Nop(),
	}), users, tokens
}

func TestAuthService_Login(t *testing.T) {
	svc, users, tokens := newAuth(t)
	ctx := context.Background()

	u, err := users.Execute(ctx, user.Command{Email: ptr("ada@example.com"), Name: ptr("Ada"), Password: ptr("Secret123")})
	require.NoError(t, err)

	session, err := svc.Login(ctx, user.LoginRequest{Email: "ADA@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, u.ID, session.User.ID)

	claims, err := tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = svc.Login(ctx, user.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	wrong, _ := errs.As(err)
	_, err = svc.Login(ctx, user.LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	unknown, _ := errs.As(err)
	require.NotNil(t, wrong)
	require.NotNil(t, unknown)
	assert.Equal(t, errs.KindUnauthorized, wrong.Kind)
	assert.Equal(t, wrong.Message, unknown.Message)

	_, err = svc.Login(ctx, user.LoginRequest{})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestAuthService_SuspendedUser(t *testing.T) {
	svc, users, _ := newAuth(t)
	ctx := context.Background()

	u, err := users.Execute(ctx, user.Command{Email: ptr("s@example.com"), Name: ptr("Sam"), Password: ptr("Secret123")})
	require.NoError(t, err)
	_, err = users.ExecuteWithID(ctx, user.Command{Status: ptr(user.StatusSuspended)}, u.ID)
	require.NoError(t, err)

	_, err = svc.Login(ctx, user.LoginRequest{Email: "s@example.com", Password: "Secret123"})
	assert.True(t, errs.Is(err, errs.KindForbidden))
}

func TestAuthService_LoginUpgradesHashCost(t *testing.T) {
	store := memory.NewUserStore()
	ctx := context.Background()

	users := app.NewUserService(app.UserDeps{
		Store:  store,
		Hasher: hasher.NewBcrypt(bcrypt.MinCost),
		Clock:  clock.NewManual(epoch),
		Logger: zerolog.Nop(),
	})
	u, err := users.Execute(ctx, user.Command{Email: ptr("r@example.com"), Name: ptr("Ray"), Password: ptr("Secret123")})
	require.NoError(t, err)

	svc := app.NewAuthService(app.AuthDeps{
		Users:  store,
		Hasher: hasher.NewBcrypt(bcrypt.MinCost + 1),
		Tokens: auth.NewTokenService(auth.Config{Secret: "test-secret"}),
		Logger: zerolog.Nop(),
	})
	_, err = svc.Login(ctx, user.LoginRequest{Email: "r@example.com", Password: "Secret123"})
	require.NoError(t, err)

	stored, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	cost, err := bcrypt.Cost(stored.PasswordHash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	_, err = svc.Login(ctx, user.LoginRequest{Email: "r@example.com", Password: "Secret123"})
	require.NoError(t, err, "the upgraded hash still verifies")
}

func TestAuthService_CurrentUser(t *testing.T) {
	svc, users, _ := newAuth(t)

	_, err := svc.CurrentUser(context.Background())
	assert.True(t, errs.Is(err, errs.KindUnauthorized))

	u, err := users.Execute(context.Background(), user.Command{Email: ptr("m@example.com"), Name: ptr("Mo"), Password: ptr("Secret123")})
	require.NoError(t, err)

	got, err := svc.CurrentUser(asCaller(u.ID, user.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = svc.CurrentUser(asCaller(404, user.RoleUser))
	assert.True(t, errs.Is(err, errs.KindUnauthorized))
}

func TestAuthService_LoginOperation(t *testing.T) {
	svc, users, _ := newAuth(t)
	_, err := users.Execute(context.Background(), user.Command{Email: ptr("op@example.com"), Name: ptr("Op"), Password: ptr("Secret123")})
	require.NoError(t, err)

	req, err := crud.NewRequest(context.Background(), "POST", "/auth/login",
		[]byte(`{"email":"op@example.com","password":"Secret123"}`), nil, nil)
	require.NoError(t, err)

	res, err := svc.LoginOperation().Execute(req, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Code())
	session, ok := res.Data().(app.Session)
	require.True(t, ok)
	assert.NotEmpty(t, session.Token)
}

type failingUsers struct{ ports.UserStore }

func (failingUsers) GetByEmail(context.Context, string) (user.User, error) {
	return user.User{}, errors.New("db down")
}

func TestAuthService_StoreFailureIsUnclassified(t *testing.T) {
	svc := app.NewAuthService(app.AuthDeps{Users: failingUsers{}, Hasher: hasher.Fake{}, Logger: zerolog.Nop()})
	_, err := svc.Login(context.Background(), user.LoginRequest{Email: "a@b.co", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, errs.KindUnclassified, errs.KindOf(err))
}
