package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/internal/account/password"
	"github.com/smallbiznis/aquaalerts/internal/account/token"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	obsmetrics "github.com/smallbiznis/aquaalerts/internal/observability/metrics"
	"github.com/smallbiznis/aquaalerts/internal/threshold"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"github.com/smallbiznis/aquaalerts/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       config.Config
	Repo         accountdomain.Repository
	Tokens       *token.Issuer
	Usage        usagedomain.Service
	Alerts       alertdomain.Service
	StoreMetrics *obsmetrics.StoreMetrics `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   accountdomain.Repository
	tokens *token.Issuer
	usage  usagedomain.Service
	alerts alertdomain.Service

	allowAdminSignup bool
	defaultThreshold float64
	storeMetrics     *obsmetrics.StoreMetrics
}

func New(p Params) accountdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	defaultThreshold := p.Config.DefaultDailyThreshold
	if threshold.Validate(defaultThreshold) != nil {
		defaultThreshold = 200
	}
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("account.service"),
		genID:  p.GenID,
		clock:  clk,
		repo:   p.Repo,
		tokens: p.Tokens,
		usage:  p.Usage,
		alerts: p.Alerts,

		allowAdminSignup: p.Config.Auth.AllowAdminSignup,
		defaultThreshold: defaultThreshold,
		storeMetrics:     p.StoreMetrics,
	}
}

func (s *Service) Register(ctx context.Context, req accountdomain.RegisterRequest) (*accountdomain.Account, error) {
	role := req.Role
	if role == accountdomain.RoleAdmin && !s.allowAdminSignup {
		s.log.Info("admin self-registration disabled, registering as user")
		role = accountdomain.RoleUser
	}
	req.Role = role
	return s.create(ctx, req)
}

func (s *Service) EnsureAdmin(ctx context.Context, req accountdomain.RegisterRequest) (*accountdomain.Account, error) {
	email, err := accountdomain.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		req.Role = accountdomain.RoleAdmin
		return s.create(ctx, req)
	}
	if existing.Role == accountdomain.RoleAdmin && existing.IsVerified {
		return existing, nil
	}
	existing.Role = accountdomain.RoleAdmin
	existing.IsVerified = true
	existing.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) create(ctx context.Context, req accountdomain.RegisterRequest) (*accountdomain.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, accountdomain.ErrInvalidName
	}
	email, err := accountdomain.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = accountdomain.RoleUser
	}
	if !role.Valid() {
		return nil, accountdomain.ErrInvalidRole
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, accountdomain.ErrAccountExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	account := &accountdomain.Account{
		ID:             s.genID.Generate(),
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		DailyThreshold: s.defaultThreshold,
		Role:           role,
		IsVerified:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, accountdomain.ErrAccountExists
		}
		return nil, err
	}

	s.log.Info("account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("role", string(account.Role)),
	)
	return account, nil
}

func (s *Service) Login(ctx context.Context, req accountdomain.LoginRequest) (*accountdomain.Session, error) {
	email, err := accountdomain.NormalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		return nil, accountdomain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if account == nil || !password.Verify(req.Password, account.PasswordHash) {
		return nil, accountdomain.ErrInvalidCredentials
	}
	if !account.IsVerified {
		return nil, accountdomain.ErrNotVerified
	}

	if password.IsLegacy(account.PasswordHash) {
		s.upgradeHash(ctx, account, req.Password)
	}
	return s.IssueSession(ctx, account)
}

// upgradeHash moves an imported bcrypt hash to argon2id. Failure only
// delays the upgrade to the next login.
func (s *Service) upgradeHash(ctx context.Context, account *accountdomain.Account, plain string) {
	hash, err := password.Hash(plain)
	if err != nil {
		s.log.Warn("rehash password failed", zap.Error(err))
		return
	}
	account.PasswordHash = hash
	account.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, account); err != nil {
		s.log.Warn("store upgraded password hash failed", zap.String("account_id", account.ID.String()), zap.Error(err))
	}
}

func (s *Service) IssueSession(ctx context.Context, account *accountdomain.Account) (*accountdomain.Session, error) {
	if account == nil {
		return nil, accountdomain.ErrNotFound
	}
	signed, expires, err := s.tokens.Issue(account.ID.String(), string(account.Role))
	if err != nil {
		return nil, err
	}
	return &accountdomain.Session{Token: signed, ExpiresAt: expires, Account: account}, nil
}

func (s *Service) Authenticate(ctx context.Context, raw string) (*accountdomain.Account, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, accountdomain.ErrUnauthorized
	}
	id, err := snowflake.ParseString(claims.Subject)
	if err != nil {
		return nil, accountdomain.ErrUnauthorized
	}
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrUnauthorized
	}
	if !account.IsVerified {
		return nil, accountdomain.ErrNotVerified
	}
	return account, nil
}

func (s *Service) Get(ctx context.Context, id string) (*accountdomain.Account, error) {
	accountID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.FindByID(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrNotFound
	}
	return account, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	normalized, err := accountdomain.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByEmail(ctx, s.db, normalized)
}

func (s *Service) UpdateProfile(ctx context.Context, req accountdomain.UpdateProfileRequest) (*accountdomain.Account, error) {
	account, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, accountdomain.ErrInvalidName
		}
		account.Name = name
	}
	if req.Email != nil {
		email, err := accountdomain.NormalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		if email != account.Email {
			other, err := s.repo.FindByEmail(ctx, s.db, email)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != account.ID {
				return nil, accountdomain.ErrAccountExists
			}
			account.Email = email
		}
	}
	if req.DailyThreshold != nil {
		if err := threshold.Validate(*req.DailyThreshold); err != nil {
			return nil, err
		}
		account.DailyThreshold = *req.DailyThreshold
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
		hash, err := password.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
	}

	account.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, accountdomain.ErrAccountExists
		}
		return nil, err
	}
	return account, nil
}

func (s *Service) UpdateThreshold(ctx context.Context, id string, value float64) (*accountdomain.Account, error) {
	if err := threshold.Validate(value); err != nil {
		return nil, err
	}
	return s.UpdateProfile(ctx, accountdomain.UpdateProfileRequest{ID: id, DailyThreshold: &value})
}

// Delete removes the account with its usage records and alerts.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	accountID, err := parseID(id)
	if err != nil {
		return err
	}

	started := time.Now()
	defer func() {
		if !errors.Is(err, accountdomain.ErrNotFound) {
			s.storeMetrics.Observe(obsmetrics.StoreOpDeleteOwner, started, err)
		}
	}()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrNotFound
		}
		if err := s.usage.DeleteByOwner(ctx, tx, accountID); err != nil {
			return err
		}
		if err := s.alerts.DeleteByOwner(ctx, tx, accountID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, accountID)
	})
	if err != nil {
		return err
	}

	s.log.Info("account deleted", zap.String("account_id", accountID.String()))
	return nil
}

func (s *Service) ListByRole(ctx context.Context, role accountdomain.Role) ([]*accountdomain.Account, error) {
	if !role.Valid() {
		return nil, accountdomain.ErrInvalidRole
	}
	accounts, err := s.repo.ListByRole(ctx, s.db, role)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*accountdomain.Account{}
	}
	return accounts, nil
}

func validatePassword(value string) error {
	if len(strings.TrimSpace(value)) < minPasswordLength {
		return accountdomain.ErrInvalidPassword
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, accountdomain.ErrInvalidID
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, accountdomain.ErrInvalidID
	}
	return id, nil
}
