package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dotsalary/dotsalary/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrNameExists   = errors.New("user name already exists")
)

// SalaryRangeFilter selects users for a salary query.
// Limit nil means no upper bound on the number of rows.
type SalaryRangeFilter struct {
	Min    decimal.Decimal
	Max    decimal.Decimal
	Offset int
	Limit  *int
	Sort   model.SortField
}

const userColumns = `id, name, salary, created_at, updated_at`

// FindByUppercaseNames returns every stored user whose canonical name is in names.
// Rows are returned in id order.
func (r *Repository) FindByUppercaseNames(ctx context.Context, names []string) ([]*model.User, error) {
	if len(names) == 0 {
		return []*model.User{}, nil
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE name_key = ANY($1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to find users by name: %w", err)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by name: %w", err)
	}
	return users, nil
}

// FindBySalaryRange returns users with Min <= salary <= Max, ordered and paged per filter.
func (r *Repository) FindBySalaryRange(ctx context.Context, filter SalaryRangeFilter) ([]*model.User, error) {
	query, args := buildSalaryRangeQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by salary range: %w", err)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by salary range: %w", err)
	}
	return users, nil
}

// buildSalaryRangeQuery renders the salary range query and its arguments.
// Ties are always broken by id so paging is stable.
func buildSalaryRangeQuery(filter SalaryRangeFilter) (string, []any) {
	var b strings.Builder
	args := []any{filter.Min, filter.Max, filter.Offset}

	b.WriteString("SELECT ")
	b.WriteString(userColumns)
	b.WriteString(" FROM users WHERE salary BETWEEN $1 AND $2")

	switch filter.Sort {
	case model.SortName, model.SortSalary:
		b.WriteString(" ORDER BY ")
		b.WriteString(filter.Sort.Column())
		b.WriteString(" ASC, id ASC")
	default:
		b.WriteString(" ORDER BY id ASC")
	}

	b.WriteString(" OFFSET $3")
	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		b.WriteString(" LIMIT $")
		b.WriteString(strconv.Itoa(len(args)))
	}

	return b.String(), args
}

const insertUserQuery = `
	INSERT INTO users (name, name_key, salary, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4)
	RETURNING id
`

const updateUserSalaryQuery = `
	UPDATE users
	SET salary = $2, updated_at = $3
	WHERE id = $1
`

// SaveAll inserts new users and updates the salary of existing ones in a
// single transaction. Either every user is written or none is.
// New users get their ids only after the transaction commits.
func (r *Repository) SaveAll(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ids := make([]int64, len(users))

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range users {
			if u.IsNew() {
				batch.Queue(insertUserQuery, u.Name, u.Key(), u.Salary, now)
			} else {
				batch.Queue(updateUserSalaryQuery, u.ID, u.Salary, now)
			}
		}

		br := tx.SendBatch(ctx, batch)
		if err := readSaveResults(br, users, ids); err != nil {
			_ = br.Close()
			return err
		}
		return br.Close()
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("failed to save users: %w", err)
	}

	for i, u := range users {
		if u.IsNew() {
			u.ID = ids[i]
			u.CreatedAt = now
		}
		u.UpdatedAt = now
	}
	return nil
}

func readSaveResults(br pgx.BatchResults, users []*model.User, ids []int64) error {
	for i, u := range users {
		if u.IsNew() {
			if err := br.QueryRow().Scan(&ids[i]); err != nil {
				return fmt.Errorf("insert %q: %w", u.Name, err)
			}
			continue
		}

		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("update user %d: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update user %d: %w", u.ID, ErrUserNotFound)
		}
	}
	return nil
}

func scanUsers(rows pgx.Rows) ([]*model.User, error) {
	users := make([]*model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Salary, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
