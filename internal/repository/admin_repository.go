package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spice-store/internal/domain"

	"github.com/google/uuid"
)

// AdminRepository defines the interface for admin account data access.
type AdminRepository interface {
	// CreateFirst inserts the bootstrap super-admin. It runs inside a
	// transaction that re-checks the table is still empty, so only one
	// bootstrap registration can ever win.
	CreateFirst(ctx context.Context, admin *domain.Admin) error
	Create(ctx context.Context, admin *domain.Admin) error
	Count(ctx context.Context) (int, error)
	FindByEmail(ctx context.Context, email string) (*domain.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	List(ctx context.Context) ([]*domain.Admin, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type adminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new instance of AdminRepository.
func NewAdminRepository(db *sql.DB) AdminRepository {
	return &adminRepository{db: db}
}

const adminColumns = `id, name, email, password_hash, role, phone, is_active, created_at, updated_at`

// CreateFirst inserts the bootstrap admin while the table is empty.
func (r *adminRepository) CreateFirst(ctx context.Context, admin *domain.Admin) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize bootstrap attempts so two first-registrations cannot both
	// pass the empty-table check.
	if _, err := tx.ExecContext(ctx, `LOCK TABLE admins IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("failed to lock admins table: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return ErrAdminExists
	}

	if err := insertAdmin(ctx, tx, admin); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bootstrap admin: %w", err)
	}
	return nil
}

// Create inserts an admin account.
func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	return insertAdmin(ctx, r.db, admin)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertAdmin(ctx context.Context, e execer, admin *domain.Admin) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO admins (`+adminColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		admin.ID,
		admin.Name,
		admin.Email,
		admin.PasswordHash,
		admin.Role,
		admin.Phone,
		admin.IsActive,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "admins_email_key") {
			return ErrAdminEmailConflict
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

// Count returns the number of admin accounts.
func (r *adminRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

// FindByEmail retrieves an admin by email.
func (r *adminRepository) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
	return scanAdminRow(row, "email")
}

// FindByID retrieves an admin by ID.
func (r *adminRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdminRow(row, "ID")
}

// List retrieves all admins, newest first.
func (r *adminRepository) List(ctx context.Context) ([]*domain.Admin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+adminColumns+` FROM admins ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	admins := []*domain.Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}
	return admins, nil
}

// UpdateProfile updates an admin's mutable profile fields.
func (r *adminRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE admins SET name = $2, phone = $3, updated_at = $4 WHERE id = $1
	`, id, name, phone, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update admin profile: %w", err)
	}
	return requireRowsAffected(result, ErrAdminNotFound)
}

// UpdatePassword replaces the stored credential hash.
func (r *adminRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE admins SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update admin password: %w", err)
	}
	return requireRowsAffected(result, ErrAdminNotFound)
}

// SetActive toggles the soft-deactivation flag.
func (r *adminRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE admins SET is_active = $2, updated_at = $3 WHERE id = $1
	`, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set admin active flag: %w", err)
	}
	return requireRowsAffected(result, ErrAdminNotFound)
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	admin := &domain.Admin{}
	err := row.Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.Role,
		&admin.Phone,
		&admin.IsActive,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return admin, nil
}

func scanAdminRow(row *sql.Row, by string) (*domain.Admin, error) {
	admin, err := scanAdmin(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to find admin by %s: %w", by, err)
	}
	return admin, nil
}
