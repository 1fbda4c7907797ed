// Package service provides business logic for the application.
package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dotsalary/dotsalary/internal/metrics"
	"github.com/dotsalary/dotsalary/internal/model"
	"github.com/dotsalary/dotsalary/internal/repository"
)

// UserRepository is the storage used by UserService.
type UserRepository interface {
	FindByUppercaseNames(ctx context.Context, names []string) ([]*model.User, error)
	FindBySalaryRange(ctx context.Context, filter repository.SalaryRangeFilter) ([]*model.User, error)
	SaveAll(ctx context.Context, users []*model.User) error
}

// UserService reconciles uploaded records with stored users and answers
// salary queries.
type UserService struct {
	repo    UserRepository
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(repo UserRepository, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		repo:    repo,
		metrics: recorder,
	}
}

// ReconcileResult summarizes a successful BulkPersist.
type ReconcileResult struct {
	// Success is always 1 for a completed batch.
	Success int
	// Inserted counts users created by the batch.
	Inserted int
	// Updated counts stored users whose salary was overwritten.
	Updated int
	// Skipped counts records ignored for a non-positive salary.
	Skipped int
	// Persisted is the number of rows written, including untouched matches.
	Persisted int
}

// BulkPersist upserts records by case-insensitive name.
//
// Existing users are loaded with a single lookup. Records are applied in
// order: a non-positive salary is skipped, an unknown name creates a user,
// a known name overwrites the salary (last record wins). Everything is then
// written in one atomic batch. The stored name of an existing user never
// changes.
func (s *UserService) BulkPersist(ctx context.Context, records []model.SalaryRecord) (*ReconcileResult, error) {
	start := time.Now()

	existing, err := s.repo.FindByUppercaseNames(ctx, canonicalNames(records))
	if err != nil {
		return nil, &StorageError{Op: "find users by name", Err: err}
	}

	acc := newAccumulator(existing)
	result := &ReconcileResult{Success: 1}
	for _, rec := range records {
		if !rec.Salary.IsPositive() {
			result.Skipped++
			continue
		}
		acc.apply(rec)
	}

	users := acc.users()
	result.Inserted = acc.inserted()
	result.Updated = acc.updated()
	result.Persisted = len(users)

	if err := s.repo.SaveAll(ctx, users); err != nil {
		return nil, &StorageError{Op: "save users", Err: err}
	}

	s.metrics.AddUsersInserted(result.Inserted)
	s.metrics.AddUsersUpdated(result.Updated)
	s.metrics.AddRecordsSkipped(result.Skipped)
	s.metrics.ObserveReconcileDuration(time.Since(start))

	return result, nil
}

// canonicalNames returns the sorted set of canonical names in records.
func canonicalNames(records []model.SalaryRecord) []string {
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0, len(records))
	for _, rec := range records {
		key := model.CanonicalName(rec.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// accumulator holds the users to persist keyed by canonical name.
// Order is fetched rows first, then new users in first-seen order.
type accumulator struct {
	index   map[string]int
	list    []*model.User
	touched []bool
}

func newAccumulator(existing []*model.User) *accumulator {
	acc := &accumulator{
		index:   make(map[string]int, len(existing)),
		list:    make([]*model.User, 0, len(existing)),
		touched: make([]bool, 0, len(existing)),
	}
	for _, u := range existing {
		key := u.Key()
		if i, ok := acc.index[key]; ok {
			acc.list[i] = u
			continue
		}
		acc.index[key] = len(acc.list)
		acc.list = append(acc.list, u)
		acc.touched = append(acc.touched, false)
	}
	return acc
}

func (a *accumulator) apply(rec model.SalaryRecord) {
	key := model.CanonicalName(rec.Name)
	if i, ok := a.index[key]; ok {
		a.list[i].Salary = rec.Salary
		a.touched[i] = true
		return
	}

	a.index[key] = len(a.list)
	a.list = append(a.list, &model.User{Name: rec.Name, Salary: rec.Salary})
	a.touched = append(a.touched, true)
}

func (a *accumulator) users() []*model.User {
	return a.list
}

func (a *accumulator) inserted() int {
	n := 0
	for _, u := range a.list {
		if u.IsNew() {
			n++
		}
	}
	return n
}

func (a *accumulator) updated() int {
	n := 0
	for i, u := range a.list {
		if !u.IsNew() && a.touched[i] {
			n++
		}
	}
	return n
}

// QueryInput defines the parameters of a salary query.
// Min, Max and Offset are mandatory; a nil Limit means unbounded.
type QueryInput struct {
	Min    *decimal.Decimal
	Max    *decimal.Decimal
	Offset *int
	Limit  *int
	Sort   string
}

// GetUsers returns users with Min <= salary <= Max, optionally sorted
// ascending by name or salary, after skipping Offset rows and taking at most
// Limit rows. Without a sort the storage order (insertion order) is kept.
func (s *UserService) GetUsers(ctx context.Context, input QueryInput) ([]*model.User, error) {
	start := time.Now()

	filter, err := validateQuery(input)
	if err != nil {
		s.metrics.IncQuery(metrics.QueryInvalid)
		return nil, err
	}

	users, err := s.repo.FindBySalaryRange(ctx, filter)
	if err != nil {
		s.metrics.IncQuery(metrics.QueryFailed)
		return nil, &StorageError{Op: "find users by salary", Err: err}
	}

	s.metrics.IncQuery(metrics.QuerySuccess)
	s.metrics.ObserveQueryDuration(time.Since(start))
	return users, nil
}

func validateQuery(input QueryInput) (repository.SalaryRangeFilter, error) {
	var filter repository.SalaryRangeFilter

	switch {
	case input.Min == nil:
		return filter, &ParameterError{Message: "Missing mandatory parameter min"}
	case input.Max == nil:
		return filter, &ParameterError{Message: "Missing mandatory parameter max"}
	case input.Offset == nil:
		return filter, &ParameterError{Message: "Missing mandatory parameter offset"}
	}

	sortField, err := model.ParseSortField(input.Sort)
	if err != nil {
		return filter, &ParameterError{Message: "Invalid sort parameter"}
	}
	if *input.Offset < 0 {
		return filter, &ParameterError{Message: "Invalid offset parameter"}
	}
	if input.Limit != nil && *input.Limit < 1 {
		return filter, &ParameterError{Message: "Invalid limit parameter"}
	}

	filter.Min = *input.Min
	filter.Max = *input.Max
	filter.Offset = *input.Offset
	filter.Limit = input.Limit
	filter.Sort = sortField
	return filter, nil
}
