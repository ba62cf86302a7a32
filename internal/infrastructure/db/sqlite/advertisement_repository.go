package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

var _ ports.AdvertisementRepository = (*AdvertisementRepository)(nil)

const advertisementColumns = `id, title, description, price, contacts, author, created_at`

type AdvertisementRepository struct {
	db *sql.DB
}

func NewAdvertisementRepository(db *sql.DB) *AdvertisementRepository {
	return &AdvertisementRepository{db: db}
}

func scanAdvertisement(row rowScanner) (*domain.Advertisement, error) {
	var (
		ad        domain.Advertisement
		createdAt int64
	)
	if err := row.Scan(&ad.ID, &ad.Title, &ad.Description, &ad.Price, &ad.Contacts, &ad.Author, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAdvertisementNotFound
		}
		return nil, err
	}
	ad.CreatedAt = fromUnix(createdAt)
	return &ad, nil
}

func (r *AdvertisementRepository) Create(ctx context.Context, ad *domain.Advertisement) (*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO advertisements (title, description, price, contacts, author, created_at) VALUES (?,?,?,?,?,?)`,
		ad.Title, ad.Description, ad.Price, ad.Contacts, ad.Author, toUnix(ad.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert advertisement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	rec := *ad
	rec.ID = id
	return &rec, nil
}

func (r *AdvertisementRepository) FindByID(ctx context.Context, id int64) (*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanAdvertisement(r.db.QueryRowContext(ctx, `SELECT `+advertisementColumns+` FROM advertisements WHERE id = ?`, id))
}

// whereClause renders filter as a WHERE clause with positional arguments.
func whereClause(filter domain.AdvertisementFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Title != nil {
		conds = append(conds, `contains_fold(title, ?)`)
		args = append(args, *filter.Title)
	}
	if filter.Author != nil {
		conds = append(conds, `author = ?`)
		args = append(args, *filter.Author)
	}
	if filter.PriceMin != nil {
		conds = append(conds, `price >= ?`)
		args = append(args, *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		conds = append(conds, `price <= ?`)
		args = append(args, *filter.PriceMax)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *AdvertisementRepository) List(ctx context.Context, filter domain.AdvertisementFilter, limit, offset int) ([]*domain.Advertisement, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := whereClause(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM advertisements`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count advertisements: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+advertisementColumns+` FROM advertisements`+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list advertisements: %w", err)
	}
	defer rows.Close()

	out := []*domain.Advertisement{}
	for rows.Next() {
		ad, err := scanAdvertisement(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ad)
	}
	return out, total, rows.Err()
}

func (r *AdvertisementRepository) Update(ctx context.Context, id int64, mutate func(ad *domain.Advertisement) error) (*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanAdvertisement(tx.QueryRowContext(ctx, `SELECT `+advertisementColumns+` FROM advertisements WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	next := *current
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Author = current.Author
	next.CreatedAt = current.CreatedAt

	_, err = tx.ExecContext(ctx,
		`UPDATE advertisements SET title = ?, description = ?, price = ?, contacts = ? WHERE id = ?`,
		next.Title, next.Description, next.Price, next.Contacts, id)
	if err != nil {
		return nil, fmt.Errorf("update advertisement: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *AdvertisementRepository) Delete(ctx context.Context, id int64, guard func(ad *domain.Advertisement) error) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanAdvertisement(tx.QueryRowContext(ctx, `SELECT `+advertisementColumns+` FROM advertisements WHERE id = ?`, id))
	if err != nil {
		return err
	}
	if guard != nil {
		if err := guard(current); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM advertisements WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete advertisement: %w", err)
	}
	return tx.Commit()
}
