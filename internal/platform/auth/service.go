package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/db"
	"ResumeSection-backend/internal/platform/validate"
)

// ReferenceChecker はアカウントに紐づく報告の件数を返す。報告が残るアカウントは削除できない。
type ReferenceChecker interface {
	CountBySection(ctx context.Context, sectionID int64) (int64, error)
}

type Options struct {
	Secret     []byte
	TTL        time.Duration
	References ReferenceChecker
	Logger     zerolog.Logger
}

type Service struct {
	db     *sql.DB
	store  AccountStore
	refs   ReferenceChecker
	secret []byte
	ttl    time.Duration
	valid  *validate.Validator
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(conn *sql.DB, opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{
		db:     conn,
		store:  NewStore(conn),
		refs:   opts.References,
		secret: opts.Secret,
		ttl:    ttl,
		valid:  validate.New(),
		log:    opts.Logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

func (s *Service) Secret() []byte { return s.secret }

// Login は資格情報を確かめてアクセストークンを発行する。
func (s *Service) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	acct, err := s.store.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return LoginResponse{}, storeErr(err)
	}
	if acct == nil || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		s.log.Warn().Str("username", username).Msg("failed login attempt")
		return LoginResponse{}, apierr.ErrUnauthenticated("invalid username or password")
	}

	token, exp, err := s.IssueToken(acct.Identity())
	if err != nil {
		return LoginResponse{}, err
	}
	s.log.Info().Str("username", acct.Username).Msg("user logged in")
	return LoginResponse{AccessToken: token, ExpiresAt: exp, ID: acct.ID, Username: acct.Username, Role: acct.Role}, nil
}

// Register はアカウントを作る。アカウントが1件も無いときだけ未認証で受け付け、
// その最初のアカウントは role 省略時に admin になる。以降は admin のみ。
func (s *Service) Register(ctx context.Context, caller *Identity, in CreateUserRequest) (UserResponse, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return UserResponse{}, storeErr(err)
	}
	if n == 0 {
		if in.Role == "" {
			in.Role = RoleAdmin
		}
		s.log.Info().Str("username", in.Username).Str("role", string(in.Role)).Msg("bootstrap account")
		return s.Create(ctx, in)
	}
	if caller == nil {
		return UserResponse{}, apierr.ErrUnauthenticated("authentication required to create users")
	}
	if caller.Role != RoleAdmin {
		return UserResponse{}, apierr.ErrForbidden("only an administrator can create users")
	}
	return s.Create(ctx, in)
}

func (s *Service) Create(ctx context.Context, in CreateUserRequest) (UserResponse, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Role == "" {
		in.Role = RoleSection
	}
	if fields := s.valid.Struct(in); fields != nil {
		return UserResponse{}, apierr.ErrValidation(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, fmt.Errorf("hash password: %w", err)
	}
	acct := &Account{Username: in.Username, PasswordHash: string(hash), Role: in.Role, CreatedAt: s.now().UTC()}
	id, err := s.store.Create(ctx, acct)
	if err != nil {
		if db.IsDuplicate(err) {
			return UserResponse{}, apierr.ErrConflict("username already exists")
		}
		return UserResponse{}, storeErr(err)
	}
	acct.ID = id
	acct.CreatedAt = db.NewTimestamp(acct.CreatedAt).Time
	return acct.toDTO(), nil
}

func (s *Service) List(ctx context.Context) ([]UserResponse, error) {
	accts, err := s.store.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]UserResponse, 0, len(accts))
	for i := range accts {
		out = append(out, accts[i].toDTO())
	}
	return out, nil
}

// Get は admin か本人だけが参照できる。
func (s *Service) Get(ctx context.Context, caller Identity, id int64) (UserResponse, error) {
	if caller.Role != RoleAdmin && caller.UserID != id {
		return UserResponse{}, apierr.ErrForbidden("administrators or the account owner only")
	}
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, storeErr(err)
	}
	if acct == nil {
		return UserResponse{}, apierr.ErrNotFound("user not found")
	}
	return acct.toDTO(), nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateUserRequest) (UserResponse, error) {
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
	}
	if fields := s.valid.Struct(in); fields != nil {
		return UserResponse{}, apierr.ErrValidation(fields)
	}

	var out Account
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		acct, err := st.GetByID(ctx, id)
		if err != nil {
			return storeErr(err)
		}
		if acct == nil {
			return apierr.ErrNotFound("user not found")
		}
		if in.Username != nil {
			acct.Username = *in.Username
		}
		if in.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			acct.PasswordHash = string(hash)
		}
		if in.Role != nil {
			acct.Role = *in.Role
		}
		if _, err := st.Update(ctx, acct); err != nil {
			if db.IsDuplicate(err) {
				return apierr.ErrConflict("username already exists")
			}
			return storeErr(err)
		}
		out = *acct
		return nil
	})
	if err != nil {
		return UserResponse{}, err
	}
	s.log.Info().Int64("user_id", id).Msg("user updated")
	return out.toDTO(), nil
}

// Delete は報告が残っているアカウントと自分自身の削除を拒否する。
func (s *Service) Delete(ctx context.Context, caller Identity, id int64) error {
	if caller.UserID == id {
		return apierr.ErrConflict("cannot delete your own account")
	}
	if s.refs != nil {
		n, err := s.refs.CountBySection(ctx, id)
		if err != nil {
			return storeErr(err)
		}
		if n > 0 {
			return apierr.ErrConflict(fmt.Sprintf("user still owns %d report(s)", n))
		}
	}
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKey(err) {
			return apierr.ErrConflict("user still owns reports")
		}
		return storeErr(err)
	}
	if n == 0 {
		return apierr.ErrNotFound("user not found")
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// IssueToken は HS256 のアクセストークンと有効期限を返す。
func (s *Service) IssueToken(id Identity) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatInt(id.UserID, 10),
		"role":     string(id.Role),
		"username": id.Username,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken は署名と有効期限を検証して Identity を取り出す。
func ParseToken(secret []byte, tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || token == nil || !token.Valid {
		return Identity{}, apierr.ErrUnauthenticated("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, apierr.ErrUnauthenticated("invalid claims")
	}

	sub, _ := claims["sub"].(string)
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, apierr.ErrUnauthenticated("invalid sub")
	}
	role, _ := claims["role"].(string)
	username, _ := claims["username"].(string)
	return Identity{UserID: uid, Username: username, Role: Role(role)}, nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if db.IsTransient(err) {
		return apierr.ErrUnavailable("account store unavailable", err)
	}
	var api *apierr.APIError
	if errors.As(err, &api) {
		return err
	}
	return fmt.Errorf("account store: %w", err)
}
