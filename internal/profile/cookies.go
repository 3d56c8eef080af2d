package profile

import (
	"context"
	"net/http"
	"time"
)

// LoadCookies returns every stored cookie that has not expired.
func (db *DB) LoadCookies() ([]*http.Cookie, error) {
	rows, err := db.sql.QueryContext(context.Background(),
		`SELECT name, value, path, max_age, expires_unix, secure, same_site FROM cookies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var out []*http.Cookie
	for rows.Next() {
		var (
			c        http.Cookie
			expires  int64
			secure   int
			sameSite int
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Path, &c.MaxAge, &expires, &secure, &sameSite); err != nil {
			return nil, err
		}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
			if !now.Before(c.Expires) {
				continue
			}
			c.MaxAge = int(c.Expires.Sub(now).Seconds())
		}
		c.Secure = secure != 0
		c.SameSite = http.SameSite(sameSite)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (db *DB) SaveCookie(c *http.Cookie) error {
	var expires int64
	if !c.Expires.IsZero() {
		expires = c.Expires.Unix()
	}
	secure := 0
	if c.Secure {
		secure = 1
	}
	_, err := db.sql.ExecContext(context.Background(),
		`INSERT INTO cookies (name, value, path, max_age, expires_unix, secure, same_site)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			path = excluded.path,
			max_age = excluded.max_age,
			expires_unix = excluded.expires_unix,
			secure = excluded.secure,
			same_site = excluded.same_site`,
		c.Name, c.Value, c.Path, c.MaxAge, expires, secure, int(c.SameSite))
	return err
}

func (db *DB) DeleteCookie(name string) error {
	_, err := db.sql.ExecContext(context.Background(), `DELETE FROM cookies WHERE name = ?`, name)
	return err
}
