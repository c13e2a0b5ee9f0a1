package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeFormat has fixed-width fractional seconds so that stored timestamps
// sort lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// QueuedMessage is the progress message of a freshly created contract.
const QueuedMessage = "Task has been queued."

const contractColumns = `id, file_name, blob_key, file_size, uploaded_at, status, progress,
	progress_message, error_message, extracted_data, identified_gaps, gaps_count,
	search_content, updated_at`

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// CreateContract inserts a new contract in the processing state with
// progress 0. UploadedAt defaults to now.
func (s *Store) CreateContract(c Contract) error {
	uploaded := c.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}
	now := formatTime(time.Now())
	_, err := s.db.Exec(`
		INSERT INTO contracts (id, file_name, blob_key, file_size, uploaded_at, status, progress, progress_message, updated_at)
		VALUES (?, ?, ?, ?, ?, 'processing', 0, ?, ?)`,
		c.ID, c.FileName, c.BlobKey, c.FileSize, formatTime(uploaded), QueuedMessage, now,
	)
	if err != nil {
		return fmt.Errorf("inserting contract %s: %w", c.ID, err)
	}
	return nil
}

// GetContract returns the contract with the given id.
func (s *Store) GetContract(id string) (Contract, error) {
	row := s.db.QueryRow(`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return Contract{}, ErrNotFound
	}
	if err != nil {
		return Contract{}, fmt.Errorf("loading contract %s: %w", id, err)
	}
	return c, nil
}

// UpdateProgress records progress for a contract that is still processing.
// Stored progress never decreases: a lower value only updates the message.
func (s *Store) UpdateProgress(id string, progress int, message string) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d outside [0,100]", progress)
	}
	res, err := s.db.Exec(`
		UPDATE contracts SET progress = MAX(progress, ?), progress_message = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		progress, message, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating progress for %s: %w", id, err)
	}
	return s.checkGuarded(res, id)
}

// CompleteContract moves a processing contract to completed. The extracted
// data, gap list, gap count and search content are written by a single
// statement, so readers never see one without the others.
func (s *Store) CompleteContract(id string, c Completion) error {
	gaps := c.IdentifiedGaps
	if gaps == nil {
		gaps = []string{}
	}
	gapsJSON, err := json.Marshal(gaps)
	if err != nil {
		return fmt.Errorf("encoding gaps: %w", err)
	}
	res, err := s.db.Exec(`
		UPDATE contracts SET status = 'completed', progress = 100, progress_message = ?,
			error_message = NULL, extracted_data = ?, identified_gaps = ?, gaps_count = ?,
			search_content = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		c.Message, string(c.ExtractedData), string(gapsJSON), len(gaps),
		c.SearchContent, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("completing contract %s: %w", id, err)
	}
	return s.checkGuarded(res, id)
}

// FailContract moves a processing contract to error with progress 100.
func (s *Store) FailContract(id, message, errMsg string) error {
	res, err := s.db.Exec(`
		UPDATE contracts SET status = 'error', progress = 100, progress_message = ?,
			error_message = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		message, errMsg, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failing contract %s: %w", id, err)
	}
	return s.checkGuarded(res, id)
}

// checkGuarded turns a zero-row guarded update into ErrNotFound or
// ErrTerminal.
func (s *Store) checkGuarded(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var status string
	err = s.db.QueryRow(`SELECT status FROM contracts WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrTerminal, id, status)
}

var sortColumns = map[string]string{
	SortUploadedAt: "uploaded_at",
	SortFileName:   "file_name",
	SortStatus:     "status",
}

// ListContracts returns one page of contracts matching q and the total
// number of matches.
func (s *Store) ListContracts(q ContractQuery) (ContractPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = 10
	}
	if q.SortBy == "" {
		q.SortBy = SortUploadedAt
	}
	col, ok := sortColumns[q.SortBy]
	if !ok {
		return ContractPage{}, fmt.Errorf("invalid sort field %q", q.SortBy)
	}

	var where []string
	var args []any
	for _, tok := range q.Search {
		if tok == "" {
			continue
		}
		where = append(where, `search_content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(tok)+"%")
	}
	if q.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, q.Status)
	}
	if q.FileNameContains != "" {
		where = append(where, `file_name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.FileNameContains)+"%")
	}
	if !q.From.IsZero() {
		where = append(where, `uploaded_at >= ?`)
		args = append(args, formatTime(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, `uploaded_at <= ?`)
		args = append(args, formatTime(q.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	page := ContractPage{Page: q.Page, Size: q.Size, Items: []Contract{}}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM contracts`+clause, args...).Scan(&page.Total); err != nil {
		return ContractPage{}, fmt.Errorf("counting contracts: %w", err)
	}

	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	query := `SELECT ` + contractColumns + ` FROM contracts` + clause +
		fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT ? OFFSET ?", col, dir, dir)
	rows, err := s.db.Query(query, append(args, q.Size, (q.Page-1)*q.Size)...)
	if err != nil {
		return ContractPage{}, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return ContractPage{}, fmt.Errorf("scanning contract: %w", err)
		}
		page.Items = append(page.Items, c)
	}
	return page, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContract(row scanner) (Contract, error) {
	var c Contract
	var uploadedAt, updatedAt string
	var errMsg, data, gaps sql.NullString
	err := row.Scan(
		&c.ID, &c.FileName, &c.BlobKey, &c.FileSize, &uploadedAt, &c.Status, &c.Progress,
		&c.ProgressMessage, &errMsg, &data, &gaps, &c.GapsCount,
		&c.SearchContent, &updatedAt,
	)
	if err != nil {
		return Contract{}, err
	}
	c.ErrorMessage = errMsg.String
	if data.Valid {
		c.ExtractedData = json.RawMessage(data.String)
	}
	if gaps.Valid {
		if err := json.Unmarshal([]byte(gaps.String), &c.IdentifiedGaps); err != nil {
			return Contract{}, fmt.Errorf("decoding gaps for %s: %w", c.ID, err)
		}
	}
	if c.UploadedAt, err = time.Parse(timeFormat, uploadedAt); err != nil {
		return Contract{}, fmt.Errorf("parsing uploaded_at for %s: %w", c.ID, err)
	}
	if c.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return Contract{}, fmt.Errorf("parsing updated_at for %s: %w", c.ID, err)
	}
	return c, nil
}
