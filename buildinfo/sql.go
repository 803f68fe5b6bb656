package buildinfo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"

	"github.com/sarchlab/fpgaseq/board"
)

const (
	buildNumberQuery = "SELECT build FROM board_builds WHERE board = ?"
	propertiesQuery  = "SELECT name, value FROM build_properties WHERE build_type = ? AND build = ?"
)

// Schema creates the tables read by SQLSource.
const Schema = `
CREATE TABLE IF NOT EXISTS board_builds (
	board VARCHAR(64) PRIMARY KEY,
	build INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS build_properties (
	build_type VARCHAR(16) NOT NULL,
	build INTEGER NOT NULL,
	name VARCHAR(64) NOT NULL,
	value BIGINT NOT NULL
);`

type propertyRow struct {
	Name  string `db:"name"`
	Value int64  `db:"value"`
}

// SQLSource reads build metadata from a relational database.
type SQLSource struct {
	db *sqlx.DB
}

// Connect opens a MySQL backed source.
func Connect(user, pass, host, dbname string) (*SQLSource, error) {
	dsn := fmt.Sprintf("%s:%s@(%s:3306)/%s?parseTime=true", user, pass, host, dbname)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, err
	}

	return &SQLSource{db: db}, nil
}

// NewSQLSource wraps an already open database.
func NewSQLSource(db *sqlx.DB) *SQLSource {
	return &SQLSource{db: db}
}

// Close releases the database connection.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

func (s *SQLSource) BuildNumber(ctx context.Context, boardName string) (int, error) {
	var build int

	err := s.db.GetContext(ctx, &build, buildNumberQuery, boardName)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotFoundError{What: "build number", Key: boardName}
	}

	if err != nil {
		return 0, &QueryError{Query: buildNumberQuery, Err: err}
	}

	return build, nil
}

func (s *SQLSource) Properties(
	ctx context.Context,
	buildType string,
	build int,
) (board.Properties, error) {
	rows, err := s.db.QueryxContext(ctx, propertiesQuery, buildType, build)
	if err != nil {
		return nil, &QueryError{Query: propertiesQuery, Err: err}
	}
	defer rows.Close()

	props := make(board.Properties)
	for rows.Next() {
		var row propertyRow
		if err := rows.StructScan(&row); err != nil {
			return nil, &QueryError{Query: propertiesQuery, Err: err}
		}

		props[row.Name] = row.Value
	}

	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: propertiesQuery, Err: err}
	}

	if len(props) == 0 {
		return nil, &NotFoundError{What: "build properties", Key: buildType, Build: build}
	}

	return props, nil
}
