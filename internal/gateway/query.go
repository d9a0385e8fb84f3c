// Package gateway expose une lecture par table : filtres eq/neq/gte/lte
// combinés en ET, tri, limite, expansion des relations et comptage seul.
// Les noms de champs et de relations sont vérifiés contre le schéma GORM.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var (
	ErrUnknownField    = errors.New("champ inconnu")
	ErrUnknownRelation = errors.New("relation inconnue")
	ErrInvalidValue    = errors.New("valeur invalide")
	ErrQuery           = errors.New("échec de la requête")
)

type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNeq, OpGte, OpLte:
		return true
	}
	return false
}

// Raw est une valeur textuelle (paramètre HTTP) convertie selon le type de la colonne.
// Une date seule ("2006-01-02") en borne lte couvre toute la journée.
type Raw string

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Order struct {
	Field     string
	Ascending bool
}

type Query struct {
	filters   []Filter
	orders    []Order
	relations []string
	scopes    []func(*gorm.DB) *gorm.DB
	limit     int
	offset    int
}

func New() *Query { return &Query{} }

func (q *Query) Where(field string, op Op, value any) *Query {
	q.filters = append(q.filters, Filter{Field: field, Op: op, Value: value})
	return q
}

func (q *Query) Eq(field string, value any) *Query  { return q.Where(field, OpEq, value) }
func (q *Query) Neq(field string, value any) *Query { return q.Where(field, OpNeq, value) }
func (q *Query) Gte(field string, value any) *Query { return q.Where(field, OpGte, value) }
func (q *Query) Lte(field string, value any) *Query { return q.Where(field, OpLte, value) }

// Between ajoute from <= field <= to sur des jours entiers, chaque borne nil étant ignorée.
func (q *Query) Between(field string, from, to *time.Time) *Query {
	if from != nil {
		q.Gte(field, startOfDay(*from))
	}
	if to != nil {
		q.Lte(field, endOfDay(*to))
	}
	return q
}

func (q *Query) OrderBy(field string, ascending bool) *Query {
	q.orders = append(q.orders, Order{Field: field, Ascending: ascending})
	return q
}

// With demande l'expansion de relations, chemins séparés par des points ("Lignes.Produit").
func (q *Query) With(relations ...string) *Query {
	q.relations = append(q.relations, relations...)
	return q
}

// Scope applique une portée GORM nommée, par exemple models.NotCancelled.
func (q *Query) Scope(fn func(*gorm.DB) *gorm.DB) *Query {
	q.scopes = append(q.scopes, fn)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// Select renvoie les lignes de la table de T correspondant à la requête.
func Select[T any](ctx context.Context, db *gorm.DB, q *Query) ([]T, error) {
	if q == nil {
		q = New()
	}
	sch, err := parseSchema[T](db)
	if err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Model(new(T))
	if tx, err = q.applyFilters(tx, sch); err != nil {
		return nil, err
	}

	for _, o := range q.orders {
		fld := lookUp(sch, o.Field)
		if fld == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, o.Field)
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Table: clause.CurrentTable, Name: fld.DBName},
			Desc:   !o.Ascending,
		})
	}

	for _, rel := range q.relations {
		path, err := resolveRelation(sch, rel)
		if err != nil {
			return nil, err
		}
		tx = preload(tx, path)
	}

	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}
	if q.offset > 0 {
		tx = tx.Offset(q.offset)
	}

	rows := make([]T, 0)
	if err := tx.Find(&rows).Error; err != nil {
		return nil, queryError(ctx, err)
	}
	return rows, nil
}

// Count renvoie le nombre de lignes sans les transférer. Tri, limite et relations sont ignorés.
func Count[T any](ctx context.Context, db *gorm.DB, q *Query) (int64, error) {
	if q == nil {
		q = New()
	}
	sch, err := parseSchema[T](db)
	if err != nil {
		return 0, err
	}

	tx := db.WithContext(ctx).Model(new(T))
	if tx, err = q.applyFilters(tx, sch); err != nil {
		return 0, err
	}

	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, queryError(ctx, err)
	}
	return n, nil
}

func (q *Query) applyFilters(tx *gorm.DB, sch *schema.Schema) (*gorm.DB, error) {
	for _, scope := range q.scopes {
		tx = tx.Scopes(scope)
	}
	for _, f := range q.filters {
		if !f.Op.Valid() {
			return nil, fmt.Errorf("%w: opérateur %q", ErrInvalidValue, f.Op)
		}
		fld := lookUp(sch, f.Field)
		if fld == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, f.Field)
		}
		value, err := coerce(fld, f.Op, f.Value)
		if err != nil {
			return nil, err
		}
		col := clause.Column{Table: clause.CurrentTable, Name: fld.DBName}
		switch f.Op {
		case OpEq:
			tx = tx.Where(clause.Eq{Column: col, Value: value})
		case OpNeq:
			tx = tx.Where(clause.Neq{Column: col, Value: value})
		case OpGte:
			tx = tx.Where(clause.Gte{Column: col, Value: value})
		case OpLte:
			tx = tx.Where(clause.Lte{Column: col, Value: value})
		}
	}
	return tx, nil
}

func parseSchema[T any](db *gorm.DB) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("%w: schéma: %w", ErrQuery, err)
	}
	return stmt.Schema, nil
}

// lookUp n'accepte que les colonnes réelles (nom de colonne ou de champ Go).
func lookUp(sch *schema.Schema, name string) *schema.Field {
	fld := sch.LookUpField(name)
	if fld == nil || fld.DBName == "" {
		return nil
	}
	return fld
}

func resolveRelation(sch *schema.Schema, path string) (string, error) {
	parts := strings.Split(path, ".")
	current := sch
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		rel := findRelation(current, part)
		if rel == nil {
			return "", fmt.Errorf("%w: %s", ErrUnknownRelation, path)
		}
		names = append(names, rel.Name)
		current = rel.FieldSchema
	}
	return strings.Join(names, "."), nil
}

func findRelation(sch *schema.Schema, name string) *schema.Relationship {
	if rel, ok := sch.Relationships.Relations[name]; ok {
		return rel
	}
	for _, rel := range sch.Relationships.Relations {
		if strings.EqualFold(rel.Name, name) {
			return rel
		}
		if rel.Field == nil {
			continue
		}
		if jsonName, _, _ := strings.Cut(rel.Field.Tag.Get("json"), ","); jsonName != "" && jsonName == name {
			return rel
		}
	}
	return nil
}

// preload garde l'ordre des lignes de livraison, y compris quand elles sont
// chargées comme étape intermédiaire ("Lignes.Produit").
func preload(tx *gorm.DB, path string) *gorm.DB {
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if part == "Lignes" {
			tx = tx.Preload(strings.Join(parts[:i+1], "."), func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC, id ASC")
			})
		}
	}
	if parts[len(parts)-1] != "Lignes" {
		tx = tx.Preload(path)
	}
	return tx
}

func coerce(fld *schema.Field, op Op, value any) (any, error) {
	raw, ok := value.(Raw)
	if !ok {
		return value, nil
	}
	s := string(raw)
	if s == "null" && (op == OpEq || op == OpNeq) {
		return nil, nil
	}

	var (
		out any
		err error
	)
	switch fld.DataType {
	case schema.Bool:
		out, err = strconv.ParseBool(s)
	case schema.Int:
		out, err = strconv.ParseInt(s, 10, 64)
	case schema.Uint:
		out, err = strconv.ParseUint(s, 10, 64)
	case schema.Float:
		out, err = strconv.ParseFloat(s, 64)
	case schema.Time:
		out, err = parseTime(s, op)
	default:
		out = s
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, fld.DBName, s)
	}
	return out, nil
}

func parseTime(s string, op Op) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if op == OpLte {
			return endOfDay(t), nil
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func queryError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrQuery, ctxErr)
	}
	return fmt.Errorf("%w: %w", ErrQuery, err)
}
