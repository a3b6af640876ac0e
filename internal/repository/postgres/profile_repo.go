package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scholarx/scholarx-backend/internal/domain"
)

const profilesTable = "profiles"

var profileColumns = []string{
	"id",
	"uid",
	"email",
	"first_name",
	"last_name",
	"image_url",
	"type",
	"has_confirmed_user_details",
	"created_at",
	"last_updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ProfileRepository implements domain.ProfileRepository using PostgreSQL
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

var _ domain.ProfileRepository = (*ProfileRepository)(nil)

// FindByID retrieves a profile by its primary key
func (r *ProfileRepository) FindByID(ctx context.Context, id int64) (*domain.Profile, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

// FindByUID retrieves a profile by its Google subject identifier
func (r *ProfileRepository) FindByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	return r.findOne(ctx, sq.Eq{"uid": uid})
}

// ExistsByUID reports whether a profile with the given uid exists
func (r *ProfileRepository) ExistsByUID(ctx context.Context, uid string) (bool, error) {
	return r.exists(ctx, sq.Eq{"uid": uid})
}

// ExistsByEmail reports whether a profile with the given email exists
func (r *ProfileRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, sq.Eq{"email": email})
}

// Save inserts a new profile (ID == 0) or updates an existing one
func (r *ProfileRepository) Save(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	var query string
	var args []interface{}
	var err error
	if profile.ID == 0 {
		query, args, err = insertProfileQuery(profile).ToSql()
	} else {
		query, args, err = updateProfileQuery(profile).ToSql()
	}
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	saved, err := scanProfile(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateUser, uniqueViolationDetail(err))
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: profile with id %d doesn't exist", domain.ErrProfileNotFound, profile.ID)
		}
		return nil, err
	}
	return saved, nil
}

func (r *ProfileRepository) findOne(ctx context.Context, where sq.Eq) (*domain.Profile, error) {
	query, args, err := selectProfileQuery(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepository) exists(ctx context.Context, where sq.Eq) (bool, error) {
	query, args, err := existsProfileQuery(where).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func selectProfileQuery(where sq.Eq) sq.SelectBuilder {
	return psql.Select(profileColumns...).
		From(profilesTable).
		Where(where).
		Limit(1)
}

func existsProfileQuery(where sq.Eq) sq.SelectBuilder {
	return psql.Select("1").
		Prefix("SELECT EXISTS (").
		From(profilesTable).
		Where(where).
		Suffix(")")
}

func insertProfileQuery(p *domain.Profile) sq.InsertBuilder {
	return psql.Insert(profilesTable).
		Columns(profileColumns[1:]...).
		Values(
			p.UID,
			p.Email,
			p.FirstName,
			p.LastName,
			p.ImageURL,
			string(p.Type),
			p.HasConfirmedUserDetails,
			p.CreatedAt,
			p.LastUpdatedAt,
		).
		Suffix("RETURNING " + joinColumns())
}

func updateProfileQuery(p *domain.Profile) sq.UpdateBuilder {
	return psql.Update(profilesTable).
		SetMap(map[string]interface{}{
			"uid":                        p.UID,
			"email":                      p.Email,
			"first_name":                 p.FirstName,
			"last_name":                  p.LastName,
			"image_url":                  p.ImageURL,
			"type":                       string(p.Type),
			"has_confirmed_user_details": p.HasConfirmedUserDetails,
			"last_updated_at":            p.LastUpdatedAt,
		}).
		Where(sq.Eq{"id": p.ID}).
		Suffix("RETURNING " + joinColumns())
}

func joinColumns() string {
	s := profileColumns[0]
	for _, c := range profileColumns[1:] {
		s += ", " + c
	}
	return s
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var profileType string
	err := row.Scan(
		&p.ID,
		&p.UID,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&p.ImageURL,
		&profileType,
		&p.HasConfirmedUserDetails,
		&p.CreatedAt,
		&p.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Type = domain.ProfileType(profileType)
	return &p, nil
}

// isPgUniqueViolation checks if an error is a PostgreSQL unique constraint violation
func isPgUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL unique violation error code is 23505
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func uniqueViolationDetail(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return "constraint " + pgErr.ConstraintName
	}
	return "unique constraint violated"
}
