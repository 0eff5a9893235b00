package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/smallbiznis/aquaalerts/internal/emailvalidation"
	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
	"github.com/smallbiznis/aquaalerts/internal/otp/repository"
	"github.com/smallbiznis/aquaalerts/internal/providers/email"
	"github.com/smallbiznis/aquaalerts/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)

type accountsMock struct {
	accountdomain.Service
	mock.Mock
}

func (m *accountsMock) FindByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*accountdomain.Account)
	return account, args.Error(1)
}

func (m *accountsMock) Register(ctx context.Context, req accountdomain.RegisterRequest) (*accountdomain.Account, error) {
	args := m.Called(ctx, req)
	account, _ := args.Get(0).(*accountdomain.Account)
	return account, args.Error(1)
}

func (m *accountsMock) IssueSession(ctx context.Context, account *accountdomain.Account) (*accountdomain.Session, error) {
	return &accountdomain.Session{Token: "signed", Account: account}, nil
}

type limiterStub struct{ allowed bool }

func (l limiterStub) AllowSend(context.Context, string) (bool, time.Duration, error) {
	return l.allowed, time.Minute, nil
}

type fixture struct {
	svc       otpdomain.Service
	store     otpdomain.Store
	accounts  *accountsMock
	validator *emailvalidation.MockValidator
	email     *email.MockProvider
	clock     *clock.FakeClock
}

func setup(t *testing.T, limiter otpdomain.RateLimiter) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	conn, err := db.NewIsolatedTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&otpdomain.OTP{}))
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	var cfg config.Config
	cfg.OTP = config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 5}

	f := fixture{
		store:     repository.NewGormStore(conn),
		accounts:  &accountsMock{},
		validator: emailvalidation.NewMockValidator(ctrl),
		email:     email.NewMockProvider(ctrl),
		clock:     clock.NewFakeClock(testNow),
	}
	f.svc = New(Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     f.clock,
		Config:    cfg,
		Store:     f.store,
		Accounts:  f.accounts,
		Validator: f.validator,
		Email:     f.email,
		Limiter:   limiter,
	})
	return f
}

// sendCode runs a successful send and returns the delivered code.
func (f fixture) sendCode(t *testing.T, address string) string {
	t.Helper()
	var code string
	f.validator.EXPECT().Validate(gomock.Any(), address).Return(emailvalidation.Result{Valid: true, Source: emailvalidation.SourceAPI})
	f.accounts.On("FindByEmail", mock.Anything, address).Return(nil, nil).Once()
	f.email.EXPECT().
		SendTemplate(gomock.Any(), []string{address}, email.TemplateVerifyEmail, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, _ string, data map[string]any) error {
			code, _ = data["code"].(string)
			assert.Equal(t, 10, data["expires_in_minutes"])
			return nil
		})

	res, err := f.svc.SendRegisterOTP(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(10*time.Minute), res.ExpiresAt)
	assert.NotEmpty(t, res.CorrelationID)
	return code
}

func TestSendRegisterOTPStoresSixDigitCode(t *testing.T) {
	f := setup(t, nil)
	code := f.sendCode(t, "ayu@example.com")

	n, err := strconv.Atoi(code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 100000)
	assert.LessOrEqual(t, n, 999999)

	stored, err := f.store.FindActive(context.Background(), "ayu@example.com", otpdomain.PurposeRegister, testNow)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, code, stored.Code)
}

func TestSendRegisterOTPRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing email", func(t *testing.T) {
		f := setup(t, nil)
		_, err := f.svc.SendRegisterOTP(ctx, "  ")
		assert.ErrorIs(t, err, otpdomain.ErrEmailRequired)
	})

	t.Run("malformed email", func(t *testing.T) {
		f := setup(t, nil)
		_, err := f.svc.SendRegisterOTP(ctx, "not-an-email")
		assert.ErrorIs(t, err, accountdomain.ErrInvalidEmail)
	})

	t.Run("validator rejects", func(t *testing.T) {
		f := setup(t, nil)
		f.validator.EXPECT().Validate(gomock.Any(), "x@mailinator.com").
			Return(emailvalidation.Result{Valid: false, Reason: emailvalidation.ReasonDisposable})
		_, err := f.svc.SendRegisterOTP(ctx, "x@mailinator.com")
		assert.ErrorIs(t, err, otpdomain.ErrUndeliverableEmail)
	})

	t.Run("account exists", func(t *testing.T) {
		f := setup(t, nil)
		f.validator.EXPECT().Validate(gomock.Any(), "ayu@example.com").Return(emailvalidation.Result{Valid: true})
		f.accounts.On("FindByEmail", mock.Anything, "ayu@example.com").Return(&accountdomain.Account{Email: "ayu@example.com"}, nil)
		_, err := f.svc.SendRegisterOTP(ctx, "Ayu@Example.com")
		assert.ErrorIs(t, err, accountdomain.ErrAccountExists)
	})

	t.Run("rate limited", func(t *testing.T) {
		f := setup(t, limiterStub{allowed: false})
		f.validator.EXPECT().Validate(gomock.Any(), "ayu@example.com").Return(emailvalidation.Result{Valid: true})
		f.accounts.On("FindByEmail", mock.Anything, "ayu@example.com").Return(nil, nil)
		_, err := f.svc.SendRegisterOTP(ctx, "ayu@example.com")
		assert.ErrorIs(t, err, otpdomain.ErrRateLimited)
	})
}

func TestSendRegisterOTPDiscardsCodeOnDeliveryFailure(t *testing.T) {
	f := setup(t, limiterStub{allowed: true})
	f.validator.EXPECT().Validate(gomock.Any(), "ayu@example.com").Return(emailvalidation.Result{Valid: true})
	f.accounts.On("FindByEmail", mock.Anything, "ayu@example.com").Return(nil, nil)
	f.email.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	_, err := f.svc.SendRegisterOTP(context.Background(), "ayu@example.com")
	assert.ErrorIs(t, err, otpdomain.ErrDeliveryFailed)

	stored, err := f.store.FindActive(context.Background(), "ayu@example.com", otpdomain.PurposeRegister, testNow)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestVerifyRegisterOTPCreatesAccount(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	code := f.sendCode(t, "ayu@example.com")

	account := &accountdomain.Account{ID: 42, Email: "ayu@example.com", IsVerified: true}
	f.accounts.On("Register", mock.Anything, accountdomain.RegisterRequest{
		Name: "Ayu", Email: "ayu@example.com", Password: "secret-pass",
	}).Return(account, nil)

	session, err := f.svc.VerifyRegisterOTP(ctx, otpdomain.VerifyRequest{
		Name: "Ayu", Email: "AYU@example.com", Password: "secret-pass", OTP: code,
	})
	require.NoError(t, err)
	assert.Equal(t, "signed", session.Token)
	assert.Equal(t, account, session.Account)

	stored, err := f.store.FindActive(ctx, "ayu@example.com", otpdomain.PurposeRegister, testNow)
	require.NoError(t, err)
	assert.Nil(t, stored)
	f.accounts.AssertExpectations(t)
}

func TestVerifyRegisterOTPRequiresAllFields(t *testing.T) {
	f := setup(t, nil)
	_, err := f.svc.VerifyRegisterOTP(context.Background(), otpdomain.VerifyRequest{Email: "ayu@example.com", OTP: "123456"})
	assert.ErrorIs(t, err, otpdomain.ErrMissingFields)
}

func TestVerifyRegisterOTPRejectsExpired(t *testing.T) {
	f := setup(t, nil)
	code := f.sendCode(t, "ayu@example.com")

	f.clock.Advance(10 * time.Minute)
	_, err := f.svc.VerifyRegisterOTP(context.Background(), otpdomain.VerifyRequest{
		Name: "Ayu", Email: "ayu@example.com", Password: "secret-pass", OTP: code,
	})
	assert.ErrorIs(t, err, otpdomain.ErrInvalidOTP)
}

func TestVerifyRegisterOTPBurnsCodeAfterMaxAttempts(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	code := f.sendCode(t, "ayu@example.com")

	wrong := "000000"
	for i := 0; i < 5; i++ {
		_, err := f.svc.VerifyRegisterOTP(ctx, otpdomain.VerifyRequest{
			Name: "Ayu", Email: "ayu@example.com", Password: "secret-pass", OTP: wrong,
		})
		require.ErrorIs(t, err, otpdomain.ErrInvalidOTP)
	}

	_, err := f.svc.VerifyRegisterOTP(ctx, otpdomain.VerifyRequest{
		Name: "Ayu", Email: "ayu@example.com", Password: "secret-pass", OTP: code,
	})
	assert.ErrorIs(t, err, otpdomain.ErrInvalidOTP)
	f.accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestNewCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := newCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0])
	}
	assert.True(t, codesMatch("123456", "123456"))
	assert.False(t, codesMatch("123456", "12345"))
}
