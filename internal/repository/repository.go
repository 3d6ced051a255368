package repository

import (
	"context"
	"database/sql"

	"github.com/booklend/lending-service/internal/errs"
	"github.com/booklend/lending-service/internal/model"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	CreateUser(ctx context.Context, user model.User) (int, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, bookID int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, bookID int) error

	BorrowBook(ctx context.Context, userID, bookID int) (model.Loan, error)
	ReturnBook(ctx context.Context, userID, bookID int) (model.Loan, error)
	ListActiveLoans(ctx context.Context) ([]model.Loan, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	usersTableName = `users`
	booksTableName = `books`
	loansTableName = `loans`
)

// partial unique indexes backing the open-loan invariants
const (
	openLoanPerBookIdx = `loans_open_book_uq`
	openLoanPerUserIdx = `loans_open_user_uq`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const bookColumns = `id, title, author, description, is_borrowed, user_id`
const loanColumns = `id, user_id, book_id, borrowed_at, returned_at`

// runInTx executes fn in a transaction, rolling back on any failure inside fn.
func (r *repository) runInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// conflictError maps a unique violation on one of the open-loan indexes back
// to the invariant that was violated. A borrow losing the race at commit gets
// the same typed error the in-transaction check would have produced.
func conflictError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case openLoanPerBookIdx:
			return errs.ErrBookUnavailable
		case openLoanPerUserIdx:
			return errs.ErrUserAlreadyBorrowing
		}
	}
	return err
}

func (r *repository) BorrowBook(ctx context.Context, userID, bookID int) (model.Loan, error) {
	var loan model.Loan
	err := r.runInTx(ctx, func(tx *sqlx.Tx) error {
		var openLoanID int
		err := tx.QueryRowxContext(ctx,
			`select id from loans where user_id = $1 and returned_at is null limit 1`, userID).
			Scan(&openLoanID)
		switch {
		case err == nil:
			return errs.ErrUserAlreadyBorrowing
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		var book model.Book
		if err := tx.GetContext(ctx, &book,
			`select `+bookColumns+` from books where id = $1 for update`, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrBookUnavailable
			}
			return err
		}
		if book.IsBorrowed {
			return errs.ErrBookUnavailable
		}

		if _, err := tx.ExecContext(ctx,
			`update books set is_borrowed = true, user_id = $2 where id = $1`, bookID, userID); err != nil {
			return err
		}

		return tx.GetContext(ctx, &loan,
			`insert into loans (user_id, book_id) values ($1, $2) returning `+loanColumns,
			userID, bookID)
	})
	if err != nil {
		return model.Loan{}, conflictError(err)
	}
	return loan, nil
}

func (r *repository) ReturnBook(ctx context.Context, userID, bookID int) (model.Loan, error) {
	var loan model.Loan
	err := r.runInTx(ctx, func(tx *sqlx.Tx) error {
		var openLoanID int
		err := tx.QueryRowxContext(ctx,
			`select id from loans where user_id = $1 and book_id = $2 and returned_at is null for update`,
			userID, bookID).Scan(&openLoanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNoActiveLoan
			}
			return err
		}

		res, err := tx.ExecContext(ctx,
			`update books set is_borrowed = false, user_id = null
			 where id = $1 and user_id = $2 and is_borrowed`, bookID, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return errs.ErrNoActiveLoan
		}

		return tx.GetContext(ctx, &loan,
			`update loans set returned_at = now() where id = $1 returning `+loanColumns, openLoanID)
	})
	if err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) ListActiveLoans(ctx context.Context) ([]model.Loan, error) {
	q, args, err := qb.Select("id", "user_id", "book_id", "borrowed_at", "returned_at").
		From(loansTableName).
		Where("returned_at is null").
		OrderBy("borrowed_at", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	loans := make([]model.Loan, 0)
	if err := r.db.SelectContext(ctx, &loans, q, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) CreateUser(ctx context.Context, user model.User) (int, error) {
	q, args, err := qb.Insert(usersTableName).
		Columns("email", "password", "role").
		Values(user.Email, user.Password, user.Role).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := r.db.GetContext(ctx, &id, q, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, errs.ErrEmailTaken
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	q, args, err := qb.Select("id", "email", "password", "role").
		From(usersTableName).
		Where(sq.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	var user model.User
	if err := r.db.GetContext(ctx, &user, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	q := qb.Select("id", "title", "author", "description", "is_borrowed", "user_id").
		From(booksTableName).
		OrderBy("id")

	if page != 0 && size != 0 {
		q = q.Limit(uint64(size)).Offset(uint64((page - 1) * size))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          page,
			PageSize:      size,
			TotalElements: len(books),
		},
		Items: books,
	}, nil
}

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	q, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "description").
		Values(req.Title, req.Author, req.Description).
		Suffix("returning " + bookColumns).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", q), zap.Any("args", args))
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) UpdateBook(ctx context.Context, bookID int, req model.UpdateBookRequest) (model.Book, error) {
	upd := qb.Update(booksTableName)
	touched := false
	if req.Title != nil {
		upd = upd.Set("title", *req.Title)
		touched = true
	}
	if req.Author != nil {
		upd = upd.Set("author", *req.Author)
		touched = true
	}
	if req.Description != nil {
		upd = upd.Set("description", *req.Description)
		touched = true
	}
	if !touched {
		return r.getBook(ctx, bookID)
	}

	q, args, err := upd.
		Where(sq.Eq{"id": bookID}).
		Suffix("returning " + bookColumns).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, bookID int) error {
	err := r.runInTx(ctx, func(tx *sqlx.Tx) error {
		var book model.Book
		if err := tx.GetContext(ctx, &book,
			`select `+bookColumns+` from books where id = $1 for update`, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		if book.IsBorrowed {
			return errs.ErrBookUnavailable
		}
		_, err := tx.ExecContext(ctx, `delete from books where id = $1`, bookID)
		return err
	})
	if err != nil {
		// the ledger keeps its rows; a book with loan history cannot be removed
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return errs.ErrBookUnavailable
		}
		return err
	}
	return nil
}

func (r *repository) getBook(ctx context.Context, bookID int) (model.Book, error) {
	var book model.Book
	if err := r.db.GetContext(ctx, &book,
		`select `+bookColumns+` from books where id = $1`, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}
