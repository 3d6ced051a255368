package service

import (
	"context"
	"errors"
	"time"

	"github.com/booklend/lending-service/config"
	"github.com/booklend/lending-service/internal/errs"
	"github.com/booklend/lending-service/internal/model"
	"github.com/booklend/lending-service/internal/repository"
	"github.com/booklend/lending-service/pkg/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service is the lending engine: it owns precondition ordering and the role
// capability checks, while atomicity of borrow/return lives in the repository
// transaction.
type Service struct {
	log      *zap.Logger
	repo     repository.Repository
	queue    Enqueuer // nil when eventing is not configured
	topic    string
	tokenTTL time.Duration
}

func NewService(repo repository.Repository, queue Enqueuer, cfg config.Config, log *zap.Logger) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		queue:    queue,
		topic:    cfg.Kafka.Topic,
		tokenTTL: cfg.Auth.TokenTTL,
	}
}

func (s *Service) Register(ctx context.Context, req model.RegisterRequest) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := model.User{
		Email:    req.Email,
		Password: string(hash),
		Role:     req.Role,
	}
	if _, err := s.repo.CreateUser(ctx, user); err != nil {
		return err
	}
	s.log.Info("user registered", zap.String("email", req.Email), zap.String("role", string(req.Role)))
	return nil
}

func (s *Service) Login(ctx context.Context, req model.AuthRequest) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", errs.ErrInvalidCredentials
	}
	return auth.NewToken(user.Email, string(user.Role), s.tokenTTL)
}

func (s *Service) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, page, size)
}

func (s *Service) CreateBook(ctx context.Context, role model.Role, req model.CreateBookRequest) (model.Book, error) {
	if role != model.RoleAdmin {
		return model.Book{}, errs.ErrForbidden
	}
	return s.repo.CreateBook(ctx, req)
}

func (s *Service) UpdateBook(ctx context.Context, role model.Role, bookID int, req model.UpdateBookRequest) (model.Book, error) {
	if role != model.RoleAdmin {
		return model.Book{}, errs.ErrForbidden
	}
	return s.repo.UpdateBook(ctx, bookID, req)
}

func (s *Service) DeleteBook(ctx context.Context, role model.Role, bookID int) error {
	if role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	return s.repo.DeleteBook(ctx, bookID)
}

// Borrow checks out bookID for the user behind username. Both the book state
// and the ledger row change in one repository transaction.
func (s *Service) Borrow(ctx context.Context, username string, bookID int) (model.Loan, error) {
	user, err := s.repo.GetUserByEmail(ctx, username)
	if err != nil {
		return model.Loan{}, err
	}
	loan, err := s.repo.BorrowBook(ctx, user.ID, bookID)
	if err != nil {
		return model.Loan{}, err
	}
	s.publishLoanEvent(model.LoanEventBorrowed, loan)
	return loan, nil
}

func (s *Service) Return(ctx context.Context, username string, bookID int) (model.Loan, error) {
	user, err := s.repo.GetUserByEmail(ctx, username)
	if err != nil {
		return model.Loan{}, err
	}
	loan, err := s.repo.ReturnBook(ctx, user.ID, bookID)
	if err != nil {
		return model.Loan{}, err
	}
	s.publishLoanEvent(model.LoanEventReturned, loan)
	return loan, nil
}

func (s *Service) ListActiveLoans(ctx context.Context, role model.Role) ([]model.Loan, error) {
	if role != model.RoleAdmin {
		return nil, errs.ErrForbidden
	}
	return s.repo.ListActiveLoans(ctx)
}

// publishLoanEvent is best effort: a broker failure never fails the loan.
func (s *Service) publishLoanEvent(typ string, loan model.Loan) {
	if s.queue == nil {
		return
	}
	event := model.LoanEvent{
		Type:       typ,
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		BookID:     loan.BookID,
		BorrowedAt: loan.BorrowedAt,
		ReturnedAt: loan.ReturnedAt,
	}
	if err := s.queue.Enqueue(s.topic, event); err != nil {
		s.log.Warn("enqueue loan event", zap.String("type", typ), zap.Int("loanId", loan.ID), zap.Error(err))
	}
}
