package facility

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"triage-workers/internal/common/errors"
	"triage-workers/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresSource reads active facilities from a table ordered by id, so the
// first-inserted facility wins distance ties.
type PostgresSource struct {
	db    *sql.DB
	table string
}

func NewPostgresSource(db *sql.DB, table string) *PostgresSource {
	if table == "" {
		table = "facilities"
	}
	return &PostgresSource{db: db, table: table}
}

func (s *PostgresSource) Name() string { return "postgres:" + s.table }

func (s *PostgresSource) query() (string, []interface{}, error) {
	return psql.
		Select("name", "lat", "lng", "phone", "ambulance_phone").
		From(s.table).
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
}

func (s *PostgresSource) Load(ctx context.Context) ([]models.Facility, error) {
	query, args, err := s.query()
	if err != nil {
		return nil, errors.NewRegistryLoadFailedError(s.Name(), err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(query, err)
	}
	defer rows.Close()

	out := []models.Facility{}
	for rows.Next() {
		var (
			f         models.Facility
			phone     sql.NullString
			ambulance sql.NullString
		)
		if err := rows.Scan(&f.Name, &f.Lat, &f.Lng, &phone, &ambulance); err != nil {
			return nil, errors.NewQueryExecutionFailedError(query, err)
		}
		f.Phone = nullableString(phone)
		f.AmbulancePhone = nullableString(ambulance)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(query, err)
	}
	return out, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
