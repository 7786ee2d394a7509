package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// MediaDAO reads and writes uploaded file records.
type MediaDAO struct {
	db  *sql.DB
	now func() time.Time
}

// NewMediaDAO creates a MediaDAO over db.
func NewMediaDAO(db *sql.DB) *MediaDAO {
	return &MediaDAO{db: db, now: time.Now}
}

// MediaFilter narrows List. Type is one of images, videos or documents.
type MediaFilter struct {
	Search string
	Type   string
	Limit  int
	Offset int
}

// MediaInput records an uploaded file. An empty FileType is derived from
// MimeType.
type MediaInput struct {
	Filename         string
	OriginalFilename string
	FilePath         string
	FileURL          string
	FileType         string
	FileSize         int64
	MimeType         string
	Width            *int
	Height           *int
	Duration         *int
	AltText          string
}

// MediaPatch updates the descriptive fields of a file.
type MediaPatch struct {
	AltText          *string
	OriginalFilename *string
}

// StorageStats summarizes the media library.
type StorageStats struct {
	TotalFiles int   `json:"totalFiles"`
	TotalSize  int64 `json:"totalSize"`
	Images     int   `json:"images"`
	Videos     int   `json:"videos"`
	Documents  int   `json:"documents"`
}

const mediaColumns = `id, filename, original_filename, file_path, file_url, file_type, file_size,
	mime_type, width, height, duration, alt_text, created_at, updated_at`

func scanMedia(sc interface{ Scan(...any) error }) (MediaFile, error) {
	var m MediaFile
	err := sc.Scan(&m.ID, &m.Filename, &m.OriginalFilename, &m.FilePath, &m.FileURL, &m.FileType,
		&m.FileSize, &m.MimeType, scanNullInt(&m.Width), scanNullInt(&m.Height), scanNullInt(&m.Duration),
		&m.AltText, scanTime(&m.CreatedAt), scanTime(&m.UpdatedAt))
	return m, err
}

func (d *MediaDAO) query(ctx context.Context, q string, args ...any) ([]MediaFile, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()
	files := []MediaFile{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		files = append(files, m)
	}
	return files, dbErr(rows.Err())
}

var mediaTypePrefixes = map[string]string{
	"images":    "image/",
	"videos":    "video/",
	"documents": "",
}

// List returns one page of files, newest first.
func (d *MediaDAO) List(ctx context.Context, f MediaFilter) (Page[MediaFile], error) {
	limit, offset := clampLimit(f.Limit), max(f.Offset, 0)
	w := &where{}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := likePattern(s)
		w.add("(original_filename LIKE ? OR alt_text LIKE ?)", pat, pat)
	}
	if prefix, ok := mediaTypePrefixes[strings.ToLower(f.Type)]; ok {
		if prefix == "" {
			w.add("mime_type NOT LIKE 'image/%' AND mime_type NOT LIKE 'video/%'")
		} else {
			w.add("mime_type LIKE ?", prefix+"%")
		}
	}

	var total int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_files`+w.String(), w.args...).Scan(&total); err != nil {
		return Page[MediaFile]{}, dbErr(err)
	}
	files, err := d.query(ctx, `SELECT `+mediaColumns+` FROM media_files`+w.String()+
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, append(w.args, limit, offset)...)
	if err != nil {
		return Page[MediaFile]{}, err
	}
	return NewPage(files, total, limit, offset), nil
}

func (d *MediaDAO) getOne(ctx context.Context, clause string, arg any) (MediaFile, error) {
	m, err := scanMedia(d.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE `+clause, arg))
	if err != nil {
		return MediaFile{}, dbErr(err)
	}
	return m, nil
}

// GetByID returns the file with id.
func (d *MediaDAO) GetByID(ctx context.Context, id int64) (MediaFile, error) {
	return d.getOne(ctx, "id = ?", id)
}

// GetByFilename returns the file stored under filename.
func (d *MediaDAO) GetByFilename(ctx context.Context, filename string) (MediaFile, error) {
	return d.getOne(ctx, "filename = ?", filename)
}

// FilenameExists reports whether a record uses filename.
func (d *MediaDAO) FilenameExists(ctx context.Context, filename string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_files WHERE filename = ?`, filename).Scan(&n)
	return n > 0, dbErr(err)
}

// Create records an uploaded file.
func (d *MediaDAO) Create(ctx context.Context, in MediaInput) (MediaFile, error) {
	if in.FileType == "" {
		in.FileType = FileTypeForMime(in.MimeType)
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO media_files (filename, original_filename, file_path, file_url, file_type, file_size,
			mime_type, width, height, duration, alt_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Filename, in.OriginalFilename, in.FilePath, in.FileURL, in.FileType, in.FileSize,
		in.MimeType, nullableInt(in.Width), nullableInt(in.Height), nullableInt(in.Duration), in.AltText)
	if err != nil {
		return MediaFile{}, dbErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return MediaFile{}, err
	}
	return d.GetByID(ctx, id)
}

// Update changes the alt text or display name of a file.
func (d *MediaDAO) Update(ctx context.Context, id int64, patch MediaPatch) (MediaFile, error) {
	var sets []string
	var args []any
	if patch.AltText != nil {
		sets = append(sets, "alt_text = ?")
		args = append(args, *patch.AltText)
	}
	if patch.OriginalFilename != nil {
		sets = append(sets, "original_filename = ?")
		args = append(args, strings.TrimSpace(*patch.OriginalFilename))
	}
	if len(sets) == 0 {
		return d.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(d.now()), id)
	res, err := d.db.ExecContext(ctx, `UPDATE media_files SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return MediaFile{}, dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return MediaFile{}, ErrNotFound
	}
	return d.GetByID(ctx, id)
}

// Rename points the record at a new stored filename.
func (d *MediaDAO) Rename(ctx context.Context, id int64, filename, path, url string) (MediaFile, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE media_files SET filename = ?, file_path = ?, file_url = ?, updated_at = ? WHERE id = ?`,
		filename, path, url, formatTime(d.now()), id)
	if err != nil {
		return MediaFile{}, dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return MediaFile{}, ErrNotFound
	}
	return d.GetByID(ctx, id)
}

// Delete removes the record and returns it so the caller can unlink the
// stored file.
func (d *MediaDAO) Delete(ctx context.Context, id int64) (MediaFile, error) {
	deleted, err := d.DeleteMany(ctx, []int64{id})
	if err != nil {
		return MediaFile{}, err
	}
	if len(deleted) == 0 {
		return MediaFile{}, ErrNotFound
	}
	return deleted[0], nil
}

// DeleteMany removes the records with ids in one transaction and returns
// the ones that existed.
func (d *MediaDAO) DeleteMany(ctx context.Context, ids []int64) ([]MediaFile, error) {
	if len(ids) == 0 {
		return []MediaFile{}, nil
	}
	var deleted []MediaFile
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE id IN (`+
			placeholders(len(ids))+`)`, int64Args(ids)...)
		if err != nil {
			return dbErr(err)
		}
		for rows.Next() {
			m, err := scanMedia(rows)
			if err != nil {
				rows.Close()
				return dbErr(err)
			}
			deleted = append(deleted, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return dbErr(err)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM media_files WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
		return dbErr(err)
	})
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		deleted = []MediaFile{}
	}
	return deleted, nil
}

// StorageStats counts files and bytes by type.
func (d *MediaDAO) StorageStats(ctx context.Context) (StorageStats, error) {
	var s StorageStats
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(file_size), 0),
			COALESCE(SUM(mime_type LIKE 'image/%'), 0),
			COALESCE(SUM(mime_type LIKE 'video/%'), 0),
			COALESCE(SUM(mime_type NOT LIKE 'image/%' AND mime_type NOT LIKE 'video/%'), 0)
		FROM media_files`).Scan(&s.TotalFiles, &s.TotalSize, &s.Images, &s.Videos, &s.Documents)
	return s, dbErr(err)
}
