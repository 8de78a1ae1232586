package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goreulmanhae/compare-api/internal/db"
	"github.com/goreulmanhae/compare-api/internal/tracing"
)

// SQLStore implements Store on PostgreSQL or SQLite.
type SQLStore struct {
	db     *db.DB
	logger *slog.Logger
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(database *db.DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: database, logger: logger}
}

func (s *SQLStore) span(ctx context.Context, table string, op tracing.DBOperation) (context.Context, func(error)) {
	return tracing.StartDBSpan(ctx, string(s.db.Dialect), table, op)
}

// ListCategories implements Store.
func (s *SQLStore) ListCategories(ctx context.Context) (out []Category, err error) {
	ctx, end := s.span(ctx, "categories", tracing.DBOperationQuery)
	defer func() { end(err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name, specs FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	out = []Category{}
	for rows.Next() {
		var (
			c     Category
			specs string
		)
		if err = rows.Scan(&c.ID, &c.Slug, &c.Name, &specs); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if c.Specs, err = decodeSpecs(specs); err != nil {
			return nil, fmt.Errorf("category %d: %w", c.ID, err)
		}
		out = append(out, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return out, nil
}

// GetCategory implements Store.
func (s *SQLStore) GetCategory(ctx context.Context, id int64) (c *Category, err error) {
	ctx, end := s.span(ctx, "categories", tracing.DBOperationQuery)
	defer func() { end(ignoreNotFound(err)) }()

	var specs string
	c = &Category{}
	err = s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT id, slug, name, specs FROM categories WHERE id = ?`), id).
		Scan(&c.ID, &c.Slug, &c.Name, &specs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if c.Specs, err = decodeSpecs(specs); err != nil {
		return nil, fmt.Errorf("category %d: %w", id, err)
	}
	return c, nil
}

// ListMakers implements Store.
func (s *SQLStore) ListMakers(ctx context.Context) (out []Maker, err error) {
	ctx, end := s.span(ctx, "makers", tracing.DBOperationQuery)
	defer func() { end(err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM makers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list makers: %w", err)
	}
	defer rows.Close()

	out = []Maker{}
	for rows.Next() {
		var m Maker
		if err = rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan maker: %w", err)
		}
		out = append(out, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate makers: %w", err)
	}
	return out, nil
}

// GetMaker implements Store.
func (s *SQLStore) GetMaker(ctx context.Context, id int64) (m *Maker, err error) {
	ctx, end := s.span(ctx, "makers", tracing.DBOperationQuery)
	defer func() { end(ignoreNotFound(err)) }()

	m = &Maker{}
	err = s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT id, name FROM makers WHERE id = ?`), id).Scan(&m.ID, &m.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get maker: %w", err)
	}
	return m, nil
}

// SearchProducts implements Store.
func (s *SQLStore) SearchProducts(ctx context.Context, q ProductQuery) (out []ProductSummary, err error) {
	ctx, end := s.span(ctx, "products", tracing.DBOperationQuery)
	defer func() { end(err) }()

	query := `
		SELECT p.id, p.name, p.image_url, p.common_specs, COALESCE(m.name, '')
		FROM products p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN makers m ON m.id = p.maker_id
		WHERE 1 = 1`
	var args []any
	if q.CategorySlug != "" {
		query += ` AND c.slug = ?`
		args = append(args, q.CategorySlug)
	}
	if q.Text != "" {
		query += ` AND LOWER(p.name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(q.Text))+"%")
	}
	query += ` ORDER BY p.id ASC`

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	out = []ProductSummary{}
	for rows.Next() {
		var (
			p         ProductSummary
			specs     string
			makerName string
		)
		if err = rows.Scan(&p.ID, &p.Name, &p.ImageURL, &specs, &makerName); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if p.Specs, err = decodeAttributes(specs); err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ID, err)
		}
		p.Brand = brandOrUnknown(makerName)
		out = append(out, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return out, nil
}

// ListVariants implements Store.
func (s *SQLStore) ListVariants(ctx context.Context, productID int64) (out []VariantListing, err error) {
	ctx, end := s.span(ctx, "product_variants", tracing.DBOperationQuery)
	defer func() { end(err) }()

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, variant_name, price, option_specs
		FROM product_variants
		WHERE product_id = ?
		ORDER BY price ASC, id ASC
	`), productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	out = []VariantListing{}
	for rows.Next() {
		var (
			v     VariantListing
			specs string
		)
		if err = rows.Scan(&v.ID, &v.VariantName, &v.Price, &specs); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if v.OptionSpecs, err = decodeAttributes(specs); err != nil {
			return nil, fmt.Errorf("variant %d: %w", v.ID, err)
		}
		out = append(out, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variants: %w", err)
	}
	return out, nil
}

// GetVariantDetails implements Store. Results follow the order of ids.
func (s *SQLStore) GetVariantDetails(ctx context.Context, ids []int64) (out []VariantDetail, err error) {
	if len(ids) == 0 {
		return []VariantDetail{}, nil
	}

	ctx, end := s.span(ctx, "product_variants", tracing.DBOperationQuery)
	defer func() { end(err) }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT v.id, v.product_id, v.variant_name, v.price, v.option_specs,
		       p.name, p.image_url, p.common_specs, COALESCE(m.name, '')
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		LEFT JOIN makers m ON m.id = p.maker_id
		WHERE v.id IN (`+placeholders+`)
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]VariantDetail, len(ids))
	for rows.Next() {
		var (
			d           VariantDetail
			optionSpecs string
			commonSpecs string
			makerName   string
		)
		if err = rows.Scan(&d.ID, &d.ProductID, &d.VariantName, &d.Price, &optionSpecs,
			&d.ProductName, &d.ProductImageURL, &commonSpecs, &makerName); err != nil {
			return nil, fmt.Errorf("failed to scan variant detail: %w", err)
		}
		if d.OptionSpecs, err = decodeAttributes(optionSpecs); err != nil {
			return nil, fmt.Errorf("variant %d: %w", d.ID, err)
		}
		if d.CommonSpecs, err = decodeAttributes(commonSpecs); err != nil {
			return nil, fmt.Errorf("product %d: %w", d.ProductID, err)
		}
		d.Brand = brandOrUnknown(makerName)
		byID[d.ID] = d
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variant details: %w", err)
	}

	out = make([]VariantDetail, 0, len(byID))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// Seed loads a snapshot in one transaction, replacing rows with the same ids.
func (s *SQLStore) Seed(ctx context.Context, snap Snapshot) (err error) {
	ctx, end := s.span(ctx, "", tracing.DBOperationExec)
	defer func() { end(err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("failed to rollback seed transaction", slog.String("error", rbErr.Error()))
		}
	}()

	upsert := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, s.db.Rebind(query), args...)
		return err
	}

	for _, c := range snap.Categories {
		specs, err := json.Marshal(nonNilSpecs(c.Specs))
		if err != nil {
			return fmt.Errorf("category %d: failed to encode specs: %w", c.ID, err)
		}
		if err := upsert(`
			INSERT INTO categories (id, slug, name, specs) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET slug = excluded.slug, name = excluded.name, specs = excluded.specs
		`, c.ID, c.Slug, c.Name, string(specs)); err != nil {
			return fmt.Errorf("failed to seed category %d: %w", c.ID, err)
		}
	}
	for _, m := range snap.Makers {
		if err := upsert(`
			INSERT INTO makers (id, name) VALUES (?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name
		`, m.ID, m.Name); err != nil {
			return fmt.Errorf("failed to seed maker %d: %w", m.ID, err)
		}
	}
	for _, p := range snap.Products {
		specs, err := encodeAttributes(p.CommonSpecs)
		if err != nil {
			return fmt.Errorf("product %d: %w", p.ID, err)
		}
		if err := upsert(`
			INSERT INTO products (id, category_id, maker_id, name, image_url, common_specs) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET category_id = excluded.category_id, maker_id = excluded.maker_id,
				name = excluded.name, image_url = excluded.image_url, common_specs = excluded.common_specs
		`, p.ID, p.CategoryID, p.MakerID, p.Name, p.ImageURL, specs); err != nil {
			return fmt.Errorf("failed to seed product %d: %w", p.ID, err)
		}
	}
	for _, v := range snap.Variants {
		specs, err := encodeAttributes(v.OptionSpecs)
		if err != nil {
			return fmt.Errorf("variant %d: %w", v.ID, err)
		}
		if err := upsert(`
			INSERT INTO product_variants (id, product_id, variant_name, price, option_specs) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET product_id = excluded.product_id, variant_name = excluded.variant_name,
				price = excluded.price, option_specs = excluded.option_specs
		`, v.ID, v.ProductID, v.VariantName, v.Price, specs); err != nil {
			return fmt.Errorf("failed to seed variant %d: %w", v.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	s.logger.InfoContext(ctx, "catalog seeded",
		"categories", len(snap.Categories),
		"makers", len(snap.Makers),
		"products", len(snap.Products),
		"variants", len(snap.Variants))
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func nonNilSpecs(specs []SpecRecord) []SpecRecord {
	if specs == nil {
		return []SpecRecord{}
	}
	return specs
}

func decodeSpecs(raw string) ([]SpecRecord, error) {
	specs := []SpecRecord{}
	if raw == "" {
		return specs, nil
	}
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, fmt.Errorf("invalid specs JSON: %w", err)
	}
	return specs, nil
}

func decodeAttributes(raw string) (AttributeMap, error) {
	attrs := AttributeMap{}
	if raw == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("invalid attributes JSON: %w", err)
	}
	if attrs == nil {
		attrs = AttributeMap{}
	}
	return attrs, nil
}

func encodeAttributes(attrs AttributeMap) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(b), nil
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
