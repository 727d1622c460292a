// Package localstore is a SQLite content repository used for local development,
// offline previews and tests. It answers the same queries as the CMS client.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/content"
)

// cursorScheme prefixes every next_page cursor handed out by the store.
const cursorScheme = "local:"

// ErrBadCursor is returned by FetchPage for cursors the store did not issue.
var ErrBadCursor = errors.New("localstore: invalid cursor")

// Store wraps a SQLite database of posts.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the server read while `seed` writes.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    uid TEXT NOT NULL,
    type TEXT NOT NULL,
    first_publication_date TEXT NOT NULL,
    last_publication_date TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_type_uid ON documents(type, uid);
CREATE INDEX IF NOT EXISTS idx_documents_first_pub ON documents(first_publication_date);
`)
	return err
}

// SavePost upserts a post. A missing id is generated, a missing type defaults to posts.
func (s *Store) SavePost(p content.Post) error {
	if p.UID == "" {
		return errors.New("localstore: post uid is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Type == "" {
		p.Type = content.DocumentType
	}
	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("encode post data: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO documents (id, uid, type, first_publication_date, last_publication_date, data) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UID, p.Type, p.FirstPublicationDate, p.LastPublicationDate, string(data))
	return err
}

// DeletePost removes a post by uid.
func (s *Store) DeletePost(uid string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE uid = ?`, uid)
	return err
}

// Import reads a JSON array of posts and saves each of them.
func (s *Store) Import(r io.Reader) (int, error) {
	var posts []content.Post
	if err := json.NewDecoder(r).Decode(&posts); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, p := range posts {
		if err := s.SavePost(p); err != nil {
			return i, fmt.Errorf("save %q: %w", p.UID, err)
		}
	}
	return len(posts), nil
}

// GetByUID returns a single document of docType. The ref is ignored; the
// store only holds published content.
func (s *Store) GetByUID(ctx context.Context, docType, uid, ref string) (content.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, uid, type, first_publication_date, last_publication_date, data FROM documents WHERE type = ? AND uid = ?`, docType, uid)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Post{}, content.ErrNotFound
	}
	return p, err
}

// Query answers q. Supported predicates are at(document.type,..),
// at(document.id,..) and at(my.<type>.uid,..); orderings are limited to
// publication dates.
func (s *Store) Query(ctx context.Context, q content.Query) (content.Response, error) {
	sp, err := compile(q)
	if err != nil {
		return content.Response{}, err
	}
	return s.run(ctx, sp)
}

// FetchPage follows a cursor previously returned in Response.NextPage.
func (s *Store) FetchPage(ctx context.Context, cursor string) (content.Response, error) {
	sp, err := decodeCursor(cursor)
	if err != nil {
		return content.Response{}, err
	}
	return s.run(ctx, sp)
}

// CheckCursor reports whether cursor was issued by a Store.
func (s *Store) CheckCursor(cursor string) error {
	_, err := decodeCursor(cursor)
	return err
}

// search is the compiled, serialisable form of a query.
type search struct {
	where    map[string]string // column -> value
	fetch    []string
	after    string
	orderBy  string
	desc     bool
	page     int
	pageSize int
}

// Cursors arrive from clients, so their paging parameters are bounded.
const (
	maxCursorPageSize = 100
	maxCursorPage     = 1 << 20
)

var orderColumns = map[string]string{
	"document.first_publication_date": "first_publication_date",
	"document.last_publication_date":  "last_publication_date",
}

func compile(q content.Query) (search, error) {
	sp := search{
		where:    make(map[string]string),
		fetch:    q.Fetch,
		after:    q.After,
		orderBy:  "first_publication_date",
		desc:     true,
		page:     q.Page,
		pageSize: q.PageSize,
	}
	for _, p := range q.Predicates {
		path, value, err := parseAt(p)
		if err != nil {
			return search{}, err
		}
		switch {
		case path == "document.type":
			sp.where["type"] = value
		case path == "document.id":
			sp.where["id"] = value
		case strings.HasPrefix(path, "my.") && strings.HasSuffix(path, ".uid"):
			sp.where["type"] = strings.TrimSuffix(strings.TrimPrefix(path, "my."), ".uid")
			sp.where["uid"] = value
		default:
			return search{}, fmt.Errorf("localstore: unsupported predicate %s", p)
		}
	}
	if len(q.Orderings) > 0 {
		col, ok := orderColumns[q.Orderings[0].Field]
		if !ok {
			return search{}, fmt.Errorf("localstore: unsupported ordering %s", q.Orderings[0])
		}
		sp.orderBy = col
		sp.desc = q.Orderings[0].Desc
	}
	if sp.page < 1 {
		sp.page = 1
	}
	if sp.pageSize < 1 {
		sp.pageSize = 20
	}
	return sp, nil
}

func parseAt(p content.Predicate) (path, value string, err error) {
	s := string(p)
	if !strings.HasPrefix(s, "[at(") || !strings.HasSuffix(s, `")]`) {
		return "", "", fmt.Errorf("localstore: unsupported predicate %s", p)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "[at("), ")]")
	path, quoted, ok := strings.Cut(inner, ",")
	if !ok {
		return "", "", fmt.Errorf("localstore: malformed predicate %s", p)
	}
	value, err = strconv.Unquote(quoted)
	if err != nil {
		return "", "", fmt.Errorf("localstore: malformed predicate %s: %w", p, err)
	}
	return path, value, nil
}

func (s *Store) run(ctx context.Context, sp search) (content.Response, error) {
	var conds []string
	var args []any
	for _, col := range []string{"type", "id", "uid"} {
		if v, ok := sp.where[col]; ok {
			conds = append(conds, col+" = ?")
			args = append(args, v)
		}
	}
	if sp.after != "" {
		// Results strictly beyond the boundary document in the requested order.
		op := ">"
		if sp.desc {
			op = "<"
		}
		conds = append(conds, fmt.Sprintf(`(%[1]s, id) %[2]s (SELECT %[1]s, id FROM documents WHERE id = ?)`, sp.orderBy, op))
		args = append(args, sp.after)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return content.Response{}, err
	}

	dir := "ASC"
	if sp.desc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT id, uid, type, first_publication_date, last_publication_date, data FROM documents%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?`,
		where, sp.orderBy, dir, dir)
	rows, err := s.db.QueryContext(ctx, query, append(args, sp.pageSize, (sp.page-1)*sp.pageSize)...)
	if err != nil {
		return content.Response{}, err
	}
	defer rows.Close()

	var posts []content.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return content.Response{}, err
		}
		posts = append(posts, project(p, sp.fetch))
	}
	if err := rows.Err(); err != nil {
		return content.Response{}, err
	}

	totalPages := (total + sp.pageSize - 1) / sp.pageSize
	resp := content.Response{
		Page:             sp.page,
		ResultsPerPage:   sp.pageSize,
		TotalResultsSize: total,
		TotalPages:       totalPages,
		Results:          posts,
	}
	if sp.page < totalPages {
		next := sp
		next.page++
		resp.NextPage = encodeCursor(next)
	}
	if sp.page > 1 {
		prev := sp
		prev.page--
		resp.PrevPage = encodeCursor(prev)
	}
	return resp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (content.Post, error) {
	var p content.Post
	var data string
	if err := row.Scan(&p.ID, &p.UID, &p.Type, &p.FirstPublicationDate, &p.LastPublicationDate, &data); err != nil {
		return content.Post{}, err
	}
	if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
		return content.Post{}, fmt.Errorf("decode data of %q: %w", p.UID, err)
	}
	return p, nil
}

// project keeps only the fetched fields, mirroring the CMS fetch option.
// Field names have the form "<type>.<field>".
func project(p content.Post, fetch []string) content.Post {
	if len(fetch) == 0 {
		return p
	}
	keep := make(map[string]bool, len(fetch))
	for _, f := range fetch {
		if _, field, ok := strings.Cut(f, "."); ok {
			keep[field] = true
		}
	}
	var d content.PostData
	if keep["title"] {
		d.Title = p.Data.Title
	}
	if keep["subtitle"] {
		d.Subtitle = p.Data.Subtitle
	}
	if keep["author"] {
		d.Author = p.Data.Author
	}
	if keep["banner"] {
		d.Banner = p.Data.Banner
	}
	if keep["content"] {
		d.Content = p.Data.Content
	}
	p.Data = d
	return p
}

func encodeCursor(sp search) string {
	v := url.Values{}
	for col, val := range sp.where {
		v.Set("w."+col, val)
	}
	if len(sp.fetch) > 0 {
		v.Set("fetch", strings.Join(sp.fetch, ","))
	}
	if sp.after != "" {
		v.Set("after", sp.after)
	}
	v.Set("orderBy", sp.orderBy)
	if sp.desc {
		v.Set("desc", "1")
	}
	v.Set("page", strconv.Itoa(sp.page))
	v.Set("pageSize", strconv.Itoa(sp.pageSize))
	return cursorScheme + v.Encode()
}

func decodeCursor(cursor string) (search, error) {
	raw, ok := strings.CutPrefix(cursor, cursorScheme)
	if !ok {
		return search{}, ErrBadCursor
	}
	v, err := url.ParseQuery(raw)
	if err != nil {
		return search{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	sp := search{where: make(map[string]string), after: v.Get("after"), desc: v.Get("desc") == "1"}
	for _, col := range []string{"type", "id", "uid"} {
		if val := v.Get("w." + col); val != "" {
			sp.where[col] = val
		}
	}
	if f := v.Get("fetch"); f != "" {
		sp.fetch = strings.Split(f, ",")
	}
	sp.orderBy = v.Get("orderBy")
	valid := false
	for _, col := range orderColumns {
		if col == sp.orderBy {
			valid = true
		}
	}
	if !valid {
		return search{}, ErrBadCursor
	}
	if sp.page, err = strconv.Atoi(v.Get("page")); err != nil || sp.page < 1 || sp.page > maxCursorPage {
		return search{}, ErrBadCursor
	}
	if sp.pageSize, err = strconv.Atoi(v.Get("pageSize")); err != nil || sp.pageSize < 1 || sp.pageSize > maxCursorPageSize {
		return search{}, ErrBadCursor
	}
	return sp, nil
}
