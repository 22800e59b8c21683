package auth

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/clinsim/clinsim/internal/audit"
	"github.com/clinsim/clinsim/internal/principal"
	"github.com/clinsim/clinsim/internal/shared"
)

// Service wraps login business rules: credential check plus token issuance.
type Service struct {
	repo   Repository
	codec  *principal.TokenCodec
	sink   audit.Sink
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, codec *principal.TokenCodec, sink audit.Sink, logger *slog.Logger) *Service {
	return &Service{repo: repo, codec: codec, sink: sink, logger: logger}
}

// Login validates email/password and issues a signed token. All credential
// failures collapse to ErrInvalidCredentials so responses do not leak which
// part was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.record(ctx, "", audit.KindLoginFailed, audit.ReasonBadCredentials)
		return "", shared.ErrInvalidCredentials
	}
	if !account.Active {
		s.record(ctx, account.ID, audit.KindLoginFailed, audit.ReasonUserInactive)
		return "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.record(ctx, account.ID, audit.KindLoginFailed, audit.ReasonBadCredentials)
		return "", shared.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(account.ID)
	if err != nil {
		return "", err
	}
	s.record(ctx, account.ID, audit.KindLogin, audit.ReasonNone)
	return token, nil
}

// TokenTTL exposes the configured token lifetime for response bodies.
func (s *Service) TokenTTL() int64 {
	return int64(s.codec.TTL().Seconds())
}

func (s *Service) record(ctx context.Context, subjectID string, kind audit.Kind, reason audit.Reason) {
	if s.sink == nil {
		return
	}
	event := audit.New(kind, subjectID)
	event.Outcome = audit.OutcomeAllow
	if kind == audit.KindLoginFailed {
		event.Outcome = audit.OutcomeDeny
	}
	event.Reason = reason
	event.Origin = audit.OriginFromContext(ctx)
	if err := s.sink.Record(ctx, event); err != nil && s.logger != nil {
		s.logger.Error("audit record", slog.Any("error", err))
	}
}
