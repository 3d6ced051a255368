package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/booklend/lending-service/config"
	"github.com/booklend/lending-service/internal/errs"
	"github.com/booklend/lending-service/internal/model"
	"github.com/booklend/lending-service/internal/service"
	"github.com/booklend/lending-service/pkg/auth"
	"github.com/booklend/lending-service/pkg/kafka"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	repo_mocks "github.com/booklend/lending-service/internal/repository/mocks"
)

type fakeQueue struct {
	topics []string
	events []model.LoanEvent
}

func (f *fakeQueue) Enqueue(topic string, v any) error {
	f.topics = append(f.topics, topic)
	f.events = append(f.events, v.(model.LoanEvent))
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Kafka: kafka.Config{Topic: "loan-events"},
		Auth:  config.Auth{TokenTTL: time.Hour},
	}
}

func newService(t *testing.T) (*service.Service, *repo_mocks.MockRepository, *fakeQueue) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	repo := repo_mocks.NewMockRepository(c)
	queue := &fakeQueue{}
	svc := service.NewService(repo, queue, testConfig(), zap.NewExample().Named("test"))
	return svc, repo, queue
}

func TestService_Borrow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok. loan event published", func(t *testing.T) {
		t.Parallel()
		svc, repo, queue := newService(t)

		repo.EXPECT().GetUserByEmail(ctx, "u@gmail.com").
			Return(model.User{ID: 5, Email: "u@gmail.com", Role: model.RoleBorrower}, nil)
		repo.EXPECT().BorrowBook(ctx, 5, 9).
			Return(model.Loan{ID: 1, UserID: 5, BookID: 9, BorrowedAt: time.Now()}, nil)

		loan, err := svc.Borrow(ctx, "u@gmail.com", 9)
		require.NoError(t, err)
		require.Equal(t, 1, loan.ID)
		require.Nil(t, loan.ReturnedAt)

		require.Equal(t, []string{"loan-events"}, queue.topics)
		require.Len(t, queue.events, 1)
		require.Equal(t, model.LoanEventBorrowed, queue.events[0].Type)
		require.Equal(t, 9, queue.events[0].BookID)
	})

	t.Run("err. book unavailable, no event", func(t *testing.T) {
		t.Parallel()
		svc, repo, queue := newService(t)

		repo.EXPECT().GetUserByEmail(ctx, "u@gmail.com").
			Return(model.User{ID: 5}, nil)
		repo.EXPECT().BorrowBook(ctx, 5, 9).
			Return(model.Loan{}, errs.ErrBookUnavailable)

		_, err := svc.Borrow(ctx, "u@gmail.com", 9)
		require.ErrorIs(t, err, errs.ErrBookUnavailable)
		require.Empty(t, queue.events)
	})

	t.Run("err. user already borrowing", func(t *testing.T) {
		t.Parallel()
		svc, repo, queue := newService(t)

		repo.EXPECT().GetUserByEmail(ctx, "u@gmail.com").
			Return(model.User{ID: 5}, nil)
		repo.EXPECT().BorrowBook(ctx, 5, 9).
			Return(model.Loan{}, errs.ErrUserAlreadyBorrowing)

		_, err := svc.Borrow(ctx, "u@gmail.com", 9)
		require.ErrorIs(t, err, errs.ErrUserAlreadyBorrowing)
		require.Empty(t, queue.events)
	})
}

func TestService_Return(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok. closed loan returned", func(t *testing.T) {
		t.Parallel()
		svc, repo, queue := newService(t)

		returnedAt := time.Now()
		repo.EXPECT().GetUserByEmail(ctx, "u@gmail.com").
			Return(model.User{ID: 5}, nil)
		repo.EXPECT().ReturnBook(ctx, 5, 9).
			Return(model.Loan{ID: 1, UserID: 5, BookID: 9, ReturnedAt: &returnedAt}, nil)

		loan, err := svc.Return(ctx, "u@gmail.com", 9)
		require.NoError(t, err)
		require.NotNil(t, loan.ReturnedAt)

		require.Len(t, queue.events, 1)
		require.Equal(t, model.LoanEventReturned, queue.events[0].Type)
	})

	t.Run("err. no active loan", func(t *testing.T) {
		t.Parallel()
		svc, repo, queue := newService(t)

		repo.EXPECT().GetUserByEmail(ctx, "u@gmail.com").
			Return(model.User{ID: 5}, nil)
		repo.EXPECT().ReturnBook(ctx, 5, 9).
			Return(model.Loan{}, errs.ErrNoActiveLoan)

		_, err := svc.Return(ctx, "u@gmail.com", 9)
		require.ErrorIs(t, err, errs.ErrNoActiveLoan)
		require.Empty(t, queue.events)
	})
}

func TestService_ListActiveLoans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("forbidden for borrower", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newService(t)

		_, err := svc.ListActiveLoans(ctx, model.RoleBorrower)
		require.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("ok for admin", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newService(t)

		loans := []model.Loan{{ID: 1}, {ID: 2}}
		repo.EXPECT().ListActiveLoans(ctx).Return(loans, nil)

		got, err := svc.ListActiveLoans(ctx, model.RoleAdmin)
		require.NoError(t, err)
		require.Equal(t, loans, got)
	})
}

func TestService_BookCRUDRoleGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.CreateBook(ctx, model.RoleBorrower, model.CreateBookRequest{Title: "Dune", Author: "Herbert"})
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = svc.UpdateBook(ctx, model.RoleBorrower, 1, model.UpdateBookRequest{})
	require.ErrorIs(t, err, errs.ErrForbidden)

	err = svc.DeleteBook(ctx, model.RoleBorrower, 1)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newService(t)

	var stored model.User
	repo.EXPECT().CreateUser(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, user model.User) (int, error) {
			stored = user
			return 1, nil
		})

	err := svc.Register(ctx, model.RegisterRequest{
		Email:    "a@gmail.com",
		Password: "Password1",
		Role:     model.RoleAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, "a@gmail.com", stored.Email)
	require.Equal(t, model.RoleAdmin, stored.Role)
	require.NotEqual(t, "Password1", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Password1")))
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := model.User{ID: 1, Email: "a@gmail.com", Password: string(hash), Role: model.RoleAdmin}

	t.Run("ok. token carries identity and role", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newService(t)
		repo.EXPECT().GetUserByEmail(ctx, "a@gmail.com").Return(user, nil)

		token, err := svc.Login(ctx, model.AuthRequest{Email: "a@gmail.com", Password: "Password1"})
		require.NoError(t, err)

		claims, err := auth.ParseToken(token)
		require.NoError(t, err)
		require.Equal(t, "a@gmail.com", claims.Profile.Username)
		require.Equal(t, "admin", claims.Profile.Role)
	})

	t.Run("err. wrong password", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newService(t)
		repo.EXPECT().GetUserByEmail(ctx, "a@gmail.com").Return(user, nil)

		_, err := svc.Login(ctx, model.AuthRequest{Email: "a@gmail.com", Password: "Password2"})
		require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	})

	t.Run("err. unknown email", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newService(t)
		repo.EXPECT().GetUserByEmail(ctx, "b@gmail.com").Return(model.User{}, errs.ErrNotFound)

		_, err := svc.Login(ctx, model.AuthRequest{Email: "b@gmail.com", Password: "Password1"})
		require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	})
}

// Borrow -> Return -> Borrow again mirrors the single-book-at-a-time policy:
// once the first loan closes, a new borrow by the same user is accepted.
func TestService_ReBorrowAfterReturn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, queue := newService(t)

	user := model.User{ID: 5, Email: "u@gmail.com", Role: model.RoleBorrower}
	repo.EXPECT().GetUserByEmail(ctx, "u@gmail.com").Return(user, nil).Times(3)

	returnedAt := time.Now()
	gomock.InOrder(
		repo.EXPECT().BorrowBook(ctx, 5, 9).Return(model.Loan{ID: 1, UserID: 5, BookID: 9}, nil),
		repo.EXPECT().ReturnBook(ctx, 5, 9).Return(model.Loan{ID: 1, UserID: 5, BookID: 9, ReturnedAt: &returnedAt}, nil),
		repo.EXPECT().BorrowBook(ctx, 5, 9).Return(model.Loan{ID: 2, UserID: 5, BookID: 9}, nil),
	)

	_, err := svc.Borrow(ctx, "u@gmail.com", 9)
	require.NoError(t, err)
	_, err = svc.Return(ctx, "u@gmail.com", 9)
	require.NoError(t, err)
	loan, err := svc.Borrow(ctx, "u@gmail.com", 9)
	require.NoError(t, err)
	require.Equal(t, 2, loan.ID)

	require.Equal(t, []string{"loan-events", "loan-events", "loan-events"}, queue.topics)
}
