package model

import (
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBorrower Role = "borrower"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleBorrower
}

type User struct {
	ID       int    `json:"-" db:"id"`
	Email    string `json:"email" db:"email"`
	Password string `json:"-" db:"password"`
	Role     Role   `json:"role" db:"role"`
}

type Book struct {
	ID          int     `json:"id" db:"id"`
	Title       string  `json:"title" db:"title"`
	Author      string  `json:"author" db:"author"`
	Description *string `json:"description,omitempty" db:"description"`
	IsBorrowed  bool    `json:"isBorrowed" db:"is_borrowed"`
	UserID      *int    `json:"-" db:"user_id"`
}

type Loan struct {
	ID         int        `json:"id" db:"id"`
	UserID     int        `json:"userId" db:"user_id"`
	BookID     int        `json:"bookId" db:"book_id"`
	BorrowedAt time.Time  `json:"borrowedAt" db:"borrowed_at"`
	ReturnedAt *time.Time `json:"returnedAt" db:"returned_at"`
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,emaildomain"`
	Password string `json:"password" validate:"required,password"`
	Role     Role   `json:"role" validate:"required,oneof=admin borrower"`
}

type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

type CreateBookRequest struct {
	Title       string  `json:"title" validate:"required"`
	Author      string  `json:"author" validate:"required"`
	Description *string `json:"description"`
}

type UpdateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
}

type BorrowRequest struct {
	BookID int `json:"bookId" validate:"required"`
}

// LoanEvent is the audit message published for each borrow/return.
type LoanEvent struct {
	Type       string     `json:"type"`
	LoanID     int        `json:"loanId"`
	UserID     int        `json:"userId"`
	BookID     int        `json:"bookId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
}

const (
	LoanEventBorrowed = "borrowed"
	LoanEventReturned = "returned"
)
