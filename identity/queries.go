package identity

import (
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	goGate "github.com/MrEthical07/goGate"
)

const (
	usersTable = "users"
	usageTable = "api_usage"
)

var (
	identityColumns = []string{"id", "permission", "api_key"}
	userColumns     = []string{"id", "name", "email", "api_key", "permission", "password_hash"}
	usageColumns    = []string{"user_id", "api_key", "request_path", "request_method", "request_time", "request_ip", "status_code"}
)

// userRow is the scan target shared by the SQL stores. pgx maps it by the db
// tags, sqlx by the same tags.
type userRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	APIKey       sql.NullString `db:"api_key"`
	Permission   int16          `db:"permission"`
	PasswordHash string         `db:"password_hash"`
}

func (r userRow) user() User {
	return User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		APIKey:       r.APIKey.String,
		Role:         goGate.Role(r.Permission),
		PasswordHash: r.PasswordHash,
	}
}

type identityRow struct {
	ID         int64          `db:"id"`
	Permission int16          `db:"permission"`
	APIKey     sql.NullString `db:"api_key"`
}

func (r identityRow) identity() goGate.Identity {
	return goGate.Identity{ID: r.ID, Role: goGate.Role(r.Permission), APIKey: r.APIKey.String}
}

type usageRow struct {
	UserID        int64          `db:"user_id"`
	APIKey        sql.NullString `db:"api_key"`
	RequestPath   string         `db:"request_path"`
	RequestMethod string         `db:"request_method"`
	RequestTime   time.Time      `db:"request_time"`
	RequestIP     string         `db:"request_ip"`
	StatusCode    int            `db:"status_code"`
}

func (r usageRow) record() goGate.AuditRecord {
	return goGate.AuditRecord{
		IdentityID:    r.UserID,
		APIKey:        r.APIKey.String,
		Path:          r.RequestPath,
		Method:        r.RequestMethod,
		Timestamp:     r.RequestTime.UTC(),
		SourceAddress: r.RequestIP,
		StatusCode:    r.StatusCode,
	}
}

// queries builds every statement the SQL stores run. Only the placeholder
// format differs between Postgres and SQLite.
type queries struct {
	sb sq.StatementBuilderType
}

func newQueries(format sq.PlaceholderFormat) queries {
	return queries{sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (q queries) identityByAPIKey(key string) (string, []interface{}, error) {
	return q.sb.Select(identityColumns...).From(usersTable).Where(sq.Eq{"api_key": key}).ToSql()
}

func (q queries) identityByID(id int64) (string, []interface{}, error) {
	return q.sb.Select(identityColumns...).From(usersTable).Where(sq.Eq{"id": id}).ToSql()
}

func (q queries) userByID(id int64) (string, []interface{}, error) {
	return q.sb.Select(userColumns...).From(usersTable).Where(sq.Eq{"id": id}).ToSql()
}

func (q queries) userByEmail(email string) (string, []interface{}, error) {
	return q.sb.Select(userColumns...).From(usersTable).Where(sq.Eq{"email": email}).ToSql()
}

func (q queries) listUsers() (string, []interface{}, error) {
	return q.sb.Select(userColumns...).From(usersTable).OrderBy("id").ToSql()
}

func (q queries) insertUser(in NewUser) (string, []interface{}, error) {
	return q.sb.Insert(usersTable).
		Columns("name", "email", "api_key", "permission", "password_hash").
		Values(in.Name, in.Email, nullable(in.APIKey), int16(in.Role), in.PasswordHash).
		Suffix("RETURNING id").
		ToSql()
}

func (q queries) deleteUsage(userID int64) (string, []interface{}, error) {
	return q.sb.Delete(usageTable).Where(sq.Eq{"user_id": userID}).ToSql()
}

func (q queries) deleteUser(id int64) (string, []interface{}, error) {
	return q.sb.Delete(usersTable).Where(sq.Eq{"id": id}).ToSql()
}

func (q queries) setRole(id int64, role goGate.Role) (string, []interface{}, error) {
	return q.sb.Update(usersTable).Set("permission", int16(role)).Where(sq.Eq{"id": id}).ToSql()
}

func (q queries) setAPIKey(id int64, key string) (string, []interface{}, error) {
	return q.sb.Update(usersTable).Set("api_key", nullable(key)).Where(sq.Eq{"id": id}).ToSql()
}

func (q queries) insertUsage(rec goGate.AuditRecord) (string, []interface{}, error) {
	return q.sb.Insert(usageTable).
		Columns(usageColumns...).
		Values(rec.IdentityID, nullable(rec.APIKey), rec.Path, rec.Method, rec.Timestamp.UTC(), rec.SourceAddress, rec.StatusCode).
		ToSql()
}

func (q queries) listUsage(userID int64, limit uint64) (string, []interface{}, error) {
	return q.sb.Select(usageColumns...).
		From(usageTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("request_time DESC", "id DESC").
		Limit(limit).
		ToSql()
}
