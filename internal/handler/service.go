package handler

import (
	"context"

	"github.com/booklend/lending-service/internal/model"
	"github.com/booklend/lending-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LendingService interface {
	Register(ctx context.Context, req model.RegisterRequest) error
	Login(ctx context.Context, req model.AuthRequest) (string, error)

	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	CreateBook(ctx context.Context, role model.Role, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, role model.Role, bookID int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, role model.Role, bookID int) error

	Borrow(ctx context.Context, username string, bookID int) (model.Loan, error)
	Return(ctx context.Context, username string, bookID int) (model.Loan, error)
	ListActiveLoans(ctx context.Context, role model.Role) ([]model.Loan, error)
}

var _ LendingService = (*service.Service)(nil)
